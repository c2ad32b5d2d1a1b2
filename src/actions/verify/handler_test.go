package verify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/stake-plus/sevenkey-bot/src/data"
	shareddiscord "github.com/stake-plus/sevenkey-bot/src/discord"
	"github.com/stake-plus/sevenkey-bot/src/game"
	"github.com/stake-plus/sevenkey-bot/src/profiles"
	"github.com/stake-plus/sevenkey-bot/src/verification"
)

type fakeChat struct {
	mu   sync.Mutex
	next int
	sent map[string]int
}

func (f *fakeChat) SendMessage(_ context.Context, channelID string, _ verification.Message) (verification.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	if f.sent == nil {
		f.sent = make(map[string]int)
	}
	f.sent[channelID]++
	return verification.MessageRef{ChannelID: channelID, MessageID: fmt.Sprint(f.next)}, nil
}
func (f *fakeChat) EditMessage(context.Context, verification.MessageRef, verification.Message) error {
	return nil
}
func (f *fakeChat) DeleteMessage(context.Context, verification.MessageRef) error { return nil }
func (f *fakeChat) EnsureRole(_ context.Context, _ string, name string) (verification.Role, error) {
	return verification.Role{ID: name, Name: name}, nil
}
func (f *fakeChat) GrantRole(context.Context, verification.Member, verification.Role) error {
	return nil
}
func (f *fakeChat) RenameMember(context.Context, verification.Member, string) error { return nil }
func (f *fakeChat) IsRequester(actorID string, rec *verification.Record) bool {
	return rec.Requester.ID == actorID
}

type fakeStore struct {
	mu    sync.Mutex
	users []verification.VerifiedUser
}

func (f *fakeStore) FindByGameAndUsername(_ context.Context, g game.Game, username string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Game == g && strings.EqualFold(u.Username, username) {
			return u.RequesterID, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeStore) FindByRequester(_ context.Context, id string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.RequesterID == id {
			return u.Username, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeStore) Insert(_ context.Context, u verification.VerifiedUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, u)
	return nil
}

func (f *fakeStore) Remove(_ context.Context, g game.Game, username string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.Game == g && strings.EqualFold(u.Username, username) {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return u.RequesterID, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeStore) TopCountries(context.Context, int) ([]data.CountryCount, error) {
	return []data.CountryCount{{Country: "FR", Members: 3}, {Country: "DE", Members: 1}}, nil
}

type fakeSettings struct {
	verification string
	admin        string
	overrides    map[string]string
}

func (f *fakeSettings) Channels() (string, string, error) {
	if f.verification == "" || f.admin == "" {
		return "", "", verification.ErrNotConfigured
	}
	return f.verification, f.admin, nil
}
func (f *fakeSettings) EmojiOverrides() map[string]string { return f.overrides }
func (f *fakeSettings) MemberRoleName() string            { return "Member" }
func (f *fakeSettings) SetAdminChannel(_ context.Context, id string) error {
	f.admin = id
	return nil
}
func (f *fakeSettings) SetVerificationChannel(_ context.Context, id string) error {
	f.verification = id
	return nil
}
func (f *fakeSettings) SetEmojiOverride(_ context.Context, shortcode, target string) error {
	if f.overrides == nil {
		f.overrides = make(map[string]string)
	}
	f.overrides[shortcode] = target
	return nil
}

type fakeResolver struct {
	profiles map[string]*game.Profile
	err      error
}

func (f *fakeResolver) Resolve(_ context.Context, input string) (*game.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[input], nil
}

type testEnv struct {
	handler  *Handler
	chat     *fakeChat
	store    *fakeStore
	settings *fakeSettings
}

func newTestEnv() *testEnv {
	env := &testEnv{
		chat:     &fakeChat{},
		store:    &fakeStore{},
		settings: &fakeSettings{verification: "verify", admin: "admin", overrides: map[string]string{"france": "flag_fr", "germany": "flag_de"}},
	}
	engine := verification.NewEngine(verification.EngineDeps{Chat: env.chat, Users: env.store, Settings: env.settings})
	env.handler = &Handler{
		Engine: engine,
		Resolver: &fakeResolver{profiles: map[string]*game.Profile{
			"alice":     {Game: game.Osu, ID: 1, Username: "alice", Country: "FR"},
			"tachi bob": {Game: game.BMS, ID: 2, Username: "bob"},
		}},
		Accounts: env.store,
		Settings: env.settings,
		Limiter:  NewMemberLimiter(rate.Inf, 1),
	}
	return env
}

func member(id string) verification.Member {
	return verification.Member{ID: id, GuildID: "g", DisplayName: "user-" + id}
}

func TestParseVerifyCommand(t *testing.T) {
	arg, ok := parseVerifyCommand("  !VERIFY   https://osu.ppy.sh/users/1 ")
	assert.True(t, ok)
	assert.Equal(t, "https://osu.ppy.sh/users/1", arg)

	arg, ok = parseVerifyCommand("!verify")
	assert.True(t, ok)
	assert.Empty(t, arg)

	_, ok = parseVerifyCommand("!verifyme now")
	assert.False(t, ok)
	_, ok = parseVerifyCommand("hello")
	assert.False(t, ok)
}

func TestDecisionsOnlyFromAdminChannel(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.Empty(t, env.handler.verify(ctx, verifyRequest{Member: member("42"), ChannelID: "verify", Arg: "alice"}))

	approve := verification.Action{Kind: verification.ActionApprove, ID: 0}
	deny := verification.Action{Kind: verification.ActionDeny, ID: 0}
	assert.Equal(t, "Verification decisions can only be made from the admin channel.", env.handler.decide(ctx, approve, "42", "verify"))
	assert.Equal(t, "Verification decisions can only be made from the admin channel.", env.handler.decide(ctx, deny, "42", "general"))
	assert.Equal(t, 1, env.handler.Engine.Registry().Len(), "request is still pending")

	env.settings.admin = ""
	assert.Contains(t, env.handler.decide(ctx, approve, "admin-1", "admin"), "/config")

	env.settings.admin = "admin"
	assert.Equal(t, "Denied verification request #0 for <@42>.", env.handler.decide(ctx, deny, "admin-1", "admin"))
}

func TestVerifyFlowApprove(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	reply := env.handler.verify(ctx, verifyRequest{Member: member("42"), ChannelID: "verify", Arg: "alice"})
	assert.Empty(t, reply)
	assert.Equal(t, 1, env.chat.sent["admin"])
	assert.Equal(t, 1, env.chat.sent["verify"])

	reply = env.handler.decide(ctx, verification.Action{Kind: verification.ActionApprove, ID: 0}, "admin-1", "admin")
	assert.Equal(t, "Verified <@42> as **alice**.", reply)

	reply = env.handler.decide(ctx, verification.Action{Kind: verification.ActionDeny, ID: 0}, "admin-2", "admin")
	assert.Equal(t, "This verification request has already been resolved.", reply)

	reply = env.handler.verify(ctx, verifyRequest{Member: member("99"), ChannelID: "verify", Arg: "alice"})
	assert.Equal(t, "This account has already been verified by <@42>.", reply)
}

func TestVerifyFlowCountrySelection(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	assert.Empty(t, env.handler.verify(ctx, verifyRequest{Member: member("7"), ChannelID: "verify", Arg: "tachi bob"}))
	assert.Zero(t, env.chat.sent["admin"])

	assert.Contains(t, env.handler.submitCountry(ctx, 0, "8", "FR"), "Only the member who requested")
	assert.Contains(t, env.handler.submitCountry(ctx, 0, "7", "Narnia"), "not recognised")
	assert.Equal(t, "Thanks! Your request was sent to the admins with country **Germany**.", env.handler.submitCountry(ctx, 0, "7", "de"))
	assert.Equal(t, 1, env.chat.sent["admin"])
}

func TestVerifyReplies(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv()
	assert.Empty(t, env.handler.verify(ctx, verifyRequest{Member: member("1"), ChannelID: "general", Arg: "alice"}), "other channels are ignored")
	assert.Equal(t, usageText, env.handler.verify(ctx, verifyRequest{Member: member("1"), ChannelID: "verify"}))
	assert.Contains(t, env.handler.verify(ctx, verifyRequest{Member: member("1"), ChannelID: "verify", Arg: "ghost"}), "Could not find that profile")

	env.handler.Resolver = &fakeResolver{err: fmt.Errorf("wrapped: %w", profiles.ErrGameUnavailable)}
	assert.Equal(t, "Verification for that game is not available right now.", env.handler.verify(ctx, verifyRequest{Member: member("1"), ChannelID: "verify", Arg: "x"}))

	env = newTestEnv()
	env.settings.admin = ""
	assert.Equal(t, "The bot is not yet configured, an admin needs to use the /config command",
		env.handler.verify(ctx, verifyRequest{Member: member("1"), ChannelID: "verify", Arg: "alice"}))
}

func TestVerifyRateLimited(t *testing.T) {
	env := newTestEnv()
	env.handler.Limiter = NewMemberLimiter(rate.Every(time.Hour), 1)
	ctx := context.Background()

	assert.Contains(t, env.handler.verify(ctx, verifyRequest{Member: member("1"), ChannelID: "verify", Arg: "ghost"}), "Could not find")
	assert.Contains(t, env.handler.verify(ctx, verifyRequest{Member: member("1"), ChannelID: "verify", Arg: "ghost"}), "too quickly")
	assert.Contains(t, env.handler.verify(ctx, verifyRequest{Member: member("2"), ChannelID: "verify", Arg: "ghost"}), "Could not find")
}

func opt(name string, value any) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Value: value}
}

func opts(o ...*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(o))
	for _, v := range o {
		out[v.Name] = v
	}
	return out
}

func TestCommands(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	admin := commandActor{ID: "1", Admin: true}

	reply := env.handler.command(ctx, shareddiscord.CommandConfig, shareddiscord.SubSetChannel,
		opts(opt("kind", shareddiscord.ChannelKindAdmin), opt("channel", "555")), commandActor{ID: "2"})
	assert.Contains(t, reply, "administrator")
	assert.Equal(t, "admin", env.settings.admin)

	reply = env.handler.command(ctx, shareddiscord.CommandConfig, shareddiscord.SubSetChannel,
		opts(opt("kind", shareddiscord.ChannelKindAdmin), opt("channel", "555")), admin)
	assert.Equal(t, "Admin channel set to <#555>.", reply)
	assert.Equal(t, "555", env.settings.admin)

	reply = env.handler.command(ctx, shareddiscord.CommandConfig, shareddiscord.SubEmojiOverride,
		opts(opt("country", "Country With No Emoji"), opt("shortcode", ":flag_fr:")), admin)
	assert.Equal(t, "Country With No Emoji will now use `:flag_fr:`.", reply)
	assert.Equal(t, "flag_fr", env.settings.overrides["country_with_no_emoji"])

	reply = env.handler.command(ctx, shareddiscord.CommandConfig, shareddiscord.SubEmojiOverride,
		opts(opt("country", "Atlantis"), opt("shortcode", ":pizza:")), admin)
	assert.Equal(t, "Atlantis will now use `:pizza:`.", reply, "any emoji shortcode is a valid target")

	reply = env.handler.command(ctx, shareddiscord.CommandConfig, shareddiscord.SubEmojiOverride,
		opts(opt("country", "France"), opt("shortcode", "not_a_flag")), admin)
	assert.Contains(t, reply, "not a known emoji shortcode")

	require.NoError(t, env.store.Insert(ctx, verification.VerifiedUser{RequesterID: "42", Game: game.Quaver, Username: "qp"}))
	reply = env.handler.command(ctx, shareddiscord.CommandRemoveUser, "", opts(opt("game", "quaver"), opt("username", "QP")), admin)
	assert.Equal(t, "Removed Quaver 7K account **QP** (was verified by <@42>).", reply)
	reply = env.handler.command(ctx, shareddiscord.CommandRemoveUser, "", opts(opt("game", "quaver"), opt("username", "QP")), admin)
	assert.Contains(t, reply, "No verified")

	reply = env.handler.command(ctx, shareddiscord.CommandList, shareddiscord.SubListCountry, nil, commandActor{ID: "3"})
	assert.Contains(t, reply, "1. France \U0001F1EB\U0001F1F7: 3")
	assert.Contains(t, reply, "2. Germany \U0001F1E9\U0001F1EA: 1")

	reply = env.handler.command(ctx, shareddiscord.CommandList, shareddiscord.SubListPending, nil, commandActor{ID: "3"})
	assert.Equal(t, "There are no pending verification requests.", reply)
}

func TestMemberLimiterPrunes(t *testing.T) {
	l := NewMemberLimiter(rate.Every(time.Minute), 1)
	start := time.Now()
	l.now = func() time.Time { return start }
	for i := 0; i <= cleanupThreshold; i++ {
		l.Allow(fmt.Sprint(i))
	}
	l.now = func() time.Time { return start.Add(2 * maxIdleAge) }
	assert.True(t, l.Allow("fresh"))
	assert.Len(t, l.members, 1)
}
