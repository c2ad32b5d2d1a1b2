package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/stake-plus/sevenkey-bot/src/verification"
)

const maxNicknameLen = 32

// restAPI is the subset of *discordgo.Session the chat adapter needs.
type restAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberNickname(guildID, userID, nickname string, options ...discordgo.RequestOption) error
}

// Chat implements verification.ChatClient on top of discordgo.
type Chat struct {
	api restAPI

	// roleMu serializes EnsureRole so concurrent approvals for the same
	// country do not create the role twice.
	roleMu sync.Mutex
}

// NewChat wraps a session. Any value with the session's REST methods works.
func NewChat(api restAPI) *Chat {
	return &Chat{api: api}
}

func (c *Chat) SendMessage(ctx context.Context, channelID string, msg verification.Message) (verification.MessageRef, error) {
	sent, err := c.api.ChannelMessageSendComplex(channelID, RenderSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return verification.MessageRef{}, err
	}
	return verification.MessageRef{ChannelID: sent.ChannelID, MessageID: sent.ID}, nil
}

func (c *Chat) EditMessage(ctx context.Context, ref verification.MessageRef, msg verification.Message) error {
	_, err := c.api.ChannelMessageEditComplex(RenderEdit(ref, msg), discordgo.WithContext(ctx))
	return err
}

// DeleteMessage treats an already deleted message as success.
func (c *Chat) DeleteMessage(ctx context.Context, ref verification.MessageRef) error {
	err := c.api.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	if err != nil && isNotFound(err) {
		log.Printf("discord: message %s in %s already gone", ref.MessageID, ref.ChannelID)
		return nil
	}
	return err
}

// EnsureRole finds a guild role by exact name, creating it when missing.
func (c *Chat) EnsureRole(ctx context.Context, guildID, name string) (verification.Role, error) {
	c.roleMu.Lock()
	defer c.roleMu.Unlock()

	existing, err := c.api.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return verification.Role{}, fmt.Errorf("list roles: %w", err)
	}
	for _, r := range existing {
		if r.Name == name {
			return verification.Role{ID: r.ID, Name: r.Name}, nil
		}
	}

	mentionable := false
	created, err := c.api.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: name, Mentionable: &mentionable}, discordgo.WithContext(ctx))
	if err != nil {
		return verification.Role{}, fmt.Errorf("create role %q: %w", name, err)
	}
	log.Printf("discord: created role %q (%s)", created.Name, created.ID)
	return verification.Role{ID: created.ID, Name: created.Name}, nil
}

func (c *Chat) GrantRole(ctx context.Context, member verification.Member, role verification.Role) error {
	return c.api.GuildMemberRoleAdd(member.GuildID, member.ID, role.ID, discordgo.WithContext(ctx))
}

func (c *Chat) RenameMember(ctx context.Context, member verification.Member, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if r := []rune(nickname); len(r) > maxNicknameLen {
		nickname = string(r[:maxNicknameLen])
	}
	return c.api.GuildMemberNickname(member.GuildID, member.ID, nickname, discordgo.WithContext(ctx))
}

func (c *Chat) IsRequester(actorID string, rec *verification.Record) bool {
	return rec != nil && actorID != "" && rec.Requester.ID == actorID
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return true
	}
	return restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMessage
}
