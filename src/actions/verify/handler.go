package verify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/stake-plus/sevenkey-bot/src/data"
	shareddiscord "github.com/stake-plus/sevenkey-bot/src/discord"
	"github.com/stake-plus/sevenkey-bot/src/game"
	"github.com/stake-plus/sevenkey-bot/src/profiles"
	"github.com/stake-plus/sevenkey-bot/src/roles"
	"github.com/stake-plus/sevenkey-bot/src/verification"
)

const (
	commandPrefix = "!verify"
	usageText     = "Usage: `!verify <profile link | game account | osu! username>`, for example `!verify quaver 12345`."
)

// ProfileResolver looks up a game profile from a verify argument.
type ProfileResolver interface {
	Resolve(ctx context.Context, input string) (*game.Profile, error)
}

// AccountStore is the part of the users table the admin commands need.
type AccountStore interface {
	Remove(ctx context.Context, g game.Game, username string) (string, bool, error)
	TopCountries(ctx context.Context, limit int) ([]data.CountryCount, error)
}

// Settings is the verification configuration the handlers read and write.
type Settings interface {
	verification.Settings
	SetAdminChannel(ctx context.Context, channelID string) error
	SetVerificationChannel(ctx context.Context, channelID string) error
	SetEmojiOverride(ctx context.Context, shortcode, target string) error
}

// Handler holds the verification command logic. Every method returns the text
// to show the actor; an empty reply means stay silent.
type Handler struct {
	Engine   *verification.Engine
	Resolver ProfileResolver
	Accounts AccountStore
	Settings Settings
	Limiter  *MemberLimiter
}

type verifyRequest struct {
	Member    verification.Member
	ChannelID string
	Arg       string
}

// parseVerifyCommand extracts the argument of a "!verify" message.
func parseVerifyCommand(content string) (string, bool) {
	content = strings.TrimSpace(content)
	head, rest, _ := strings.Cut(content, " ")
	if !strings.EqualFold(head, commandPrefix) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func (h *Handler) verify(ctx context.Context, req verifyRequest) string {
	verificationChannel, _, err := h.Settings.Channels()
	if err != nil {
		return verification.UserMessage(err)
	}
	if req.ChannelID != verificationChannel {
		return ""
	}
	if req.Arg == "" {
		return usageText
	}
	if !h.Limiter.Allow(req.Member.ID) {
		return "You are sending verification requests too quickly, please wait a moment."
	}

	profile, err := h.Resolver.Resolve(ctx, req.Arg)
	if err != nil {
		log.Printf("verify: resolve %q for %s: %v", req.Arg, req.Member.ID, err)
		if errors.Is(err, profiles.ErrGameUnavailable) {
			return "Verification for that game is not available right now."
		}
		return "Could not look up that profile right now, please try again later."
	}
	if profile == nil {
		return "Could not find that profile. " + usageText
	}

	rec, err := h.Engine.Create(ctx, verification.Request{
		Requester: req.Member,
		ChannelID: req.ChannelID,
		Profile:   *profile,
	})
	if errors.Is(err, verification.ErrWrongChannel) {
		return ""
	}
	if err != nil {
		log.Printf("verify: create request for %s (%s %s): %v", req.Member.ID, profile.Game, profile.Username, err)
		return verification.UserMessage(err)
	}
	log.Printf("verify: request #%d created for %s as %s %s (%s)", rec.ID, req.Member.ID, profile.Game, profile.Username, rec.State)
	return ""
}

// decide runs an approve or deny pressed in channelID. Decisions are only
// honoured from the configured admin channel.
func (h *Handler) decide(ctx context.Context, action verification.Action, actorID, channelID string) string {
	if action.Kind == verification.ActionApprove || action.Kind == verification.ActionDeny {
		_, adminChannel, err := h.Settings.Channels()
		if err != nil {
			return verification.UserMessage(err)
		}
		if channelID != adminChannel {
			log.Printf("verify: %s #%d by %s ignored outside the admin channel (%s)", action.Kind, action.ID, actorID, channelID)
			return "Verification decisions can only be made from the admin channel."
		}
	}

	switch action.Kind {
	case verification.ActionApprove:
		rec, err := h.Engine.Approve(ctx, action.ID, actorID)
		if err != nil {
			log.Printf("verify: approve #%d by %s: %v", action.ID, actorID, err)
			return verification.UserMessage(err)
		}
		log.Printf("verify: request #%d approved by %s", rec.ID, actorID)
		return fmt.Sprintf("Verified <@%s> as **%s**.", rec.Requester.ID, rec.Profile.Username)
	case verification.ActionDeny:
		rec, err := h.Engine.Deny(ctx, action.ID, actorID)
		if err != nil {
			log.Printf("verify: deny #%d by %s: %v", action.ID, actorID, err)
			return verification.UserMessage(err)
		}
		log.Printf("verify: request #%d denied by %s", rec.ID, actorID)
		return fmt.Sprintf("Denied verification request #%d for <@%s>.", rec.ID, rec.Requester.ID)
	default:
		return "Unknown action."
	}
}

func (h *Handler) submitCountry(ctx context.Context, id uint64, actorID, country string) string {
	rec, err := h.Engine.SelectCountry(ctx, id, actorID, country)
	if err != nil {
		log.Printf("verify: country for #%d by %s: %v", id, actorID, err)
		return verification.UserMessage(err)
	}
	name, _ := roles.CountryName(rec.Profile.Country)
	return fmt.Sprintf("Thanks! Your request was sent to the admins with country **%s**.", name)
}

type commandActor struct {
	ID    string
	Admin bool
}

func (h *Handler) command(ctx context.Context, name, sub string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption, actor commandActor) string {
	switch name {
	case shareddiscord.CommandConfig:
		if !actor.Admin {
			return "You need administrator permissions to configure the bot."
		}
		return h.configure(ctx, sub, opts)
	case shareddiscord.CommandRemoveUser:
		if !actor.Admin {
			return "You need administrator permissions to remove verified users."
		}
		return h.removeUser(ctx, stringOpt(opts, "game"), stringOpt(opts, "username"))
	case shareddiscord.CommandList:
		return h.list(ctx, sub)
	default:
		return ""
	}
}

func (h *Handler) configure(ctx context.Context, sub string, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) string {
	switch sub {
	case shareddiscord.SubSetChannel:
		channelID := stringOpt(opts, "channel")
		if channelID == "" {
			return "Please pick a channel."
		}
		var err error
		label := ""
		switch stringOpt(opts, "kind") {
		case shareddiscord.ChannelKindAdmin:
			label = "Admin"
			err = h.Settings.SetAdminChannel(ctx, channelID)
		case shareddiscord.ChannelKindVerification:
			label = "Verification"
			err = h.Settings.SetVerificationChannel(ctx, channelID)
		default:
			return "Unknown channel kind."
		}
		if err != nil {
			log.Printf("verify: set %s channel: %v", label, err)
			return "Failed to save the configuration, please try again."
		}
		return fmt.Sprintf("%s channel set to <#%s>.", label, channelID)

	case shareddiscord.SubEmojiOverride:
		country := stringOpt(opts, "country")
		if country == "" {
			return "Please name a country."
		}
		target := strings.Trim(strings.TrimSpace(stringOpt(opts, "shortcode")), ":")
		if target != "" {
			if _, ok := roles.Emoji(target); !ok {
				return fmt.Sprintf("`:%s:` is not a known emoji shortcode.", target)
			}
		}
		shortcode := roles.Shortcode(country)
		if err := h.Settings.SetEmojiOverride(ctx, shortcode, target); err != nil {
			log.Printf("verify: save emoji override %s: %v", shortcode, err)
			return "Failed to save the emoji override, please try again."
		}
		if target == "" {
			return fmt.Sprintf("Emoji override for %s cleared.", country)
		}
		return fmt.Sprintf("%s will now use `:%s:`.", country, target)
	default:
		return "Unknown configuration option."
	}
}

func (h *Handler) removeUser(ctx context.Context, rawGame, username string) string {
	g, err := game.Parse(rawGame)
	if err != nil {
		return fmt.Sprintf("Unknown game %q.", rawGame)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return "Please give a username."
	}

	owner, found, err := h.Accounts.Remove(ctx, g, username)
	if err != nil {
		log.Printf("verify: remove %s user %s: %v", g, username, err)
		return "Failed to remove the user, please try again."
	}
	if !found {
		return fmt.Sprintf("No verified %s account named **%s**.", g.Title(), username)
	}
	log.Printf("verify: removed %s user %s (owner %s)", g, username, owner)
	return fmt.Sprintf("Removed %s account **%s** (was verified by <@%s>).", g.Title(), username, owner)
}

func (h *Handler) list(ctx context.Context, sub string) string {
	switch sub {
	case shareddiscord.SubListPending:
		pending := h.Engine.Registry().List()
		if len(pending) == 0 {
			return "There are no pending verification requests."
		}
		var b strings.Builder
		b.WriteString("**Pending verification requests**\n")
		for _, rec := range pending {
			fmt.Fprintf(&b, "#%d <@%s> %s **%s** (%s)\n", rec.ID, rec.Requester.ID, rec.Profile.Game.Title(), rec.Profile.Username, rec.State)
		}
		return b.String()

	default:
		top, err := h.Accounts.TopCountries(ctx, 10)
		if err != nil {
			log.Printf("verify: list countries: %v", err)
			return "Failed to load the country list, please try again."
		}
		if len(top) == 0 {
			return "Nobody has been verified yet."
		}
		overrides := h.Settings.EmojiOverrides()
		var b strings.Builder
		b.WriteString("**Top countries**\n")
		for i, c := range top {
			label := c.Country
			if name, ok := roles.CountryName(c.Country); ok {
				label = name
				if roleName, err := roles.RoleNameFor(name, overrides); err == nil {
					label = roleName
				}
			}
			fmt.Fprintf(&b, "%d. %s: %d\n", i+1, label, c.Members)
		}
		return b.String()
	}
}

func stringOpt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	opt, ok := opts[name]
	if !ok || opt == nil {
		return ""
	}
	if s, ok := opt.Value.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(opt.Value))
}
