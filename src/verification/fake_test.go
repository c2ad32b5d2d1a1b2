package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/stake-plus/sevenkey-bot/src/game"
)

// ------------------------
// Fake chat client
// ------------------------

type sentMessage struct {
	Ref     MessageRef
	Message Message
}

type fakeChat struct {
	mu sync.Mutex

	nextMsg  int
	sent     []sentMessage
	edited   map[string][]Message
	deleted  []MessageRef
	roles    map[string]Role
	granted  map[string][]string
	nickname map[string]string

	// failures keyed by operation name; the error is returned once per entry.
	failures map[string][]error
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		edited:   make(map[string][]Message),
		roles:    make(map[string]Role),
		granted:  make(map[string][]string),
		nickname: make(map[string]string),
		failures: make(map[string][]error),
	}
}

func (f *fakeChat) failNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

func (f *fakeChat) popFailure(op string) error {
	queue := f.failures[op]
	if len(queue) == 0 {
		return nil
	}
	f.failures[op] = queue[1:]
	return queue[0]
}

func (f *fakeChat) SendMessage(_ context.Context, channelID string, msg Message) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure("send"); err != nil {
		return MessageRef{}, err
	}
	f.nextMsg++
	ref := MessageRef{ChannelID: channelID, MessageID: fmt.Sprintf("m%d", f.nextMsg)}
	f.sent = append(f.sent, sentMessage{Ref: ref, Message: msg})
	return ref, nil
}

func (f *fakeChat) EditMessage(_ context.Context, ref MessageRef, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure("edit"); err != nil {
		return err
	}
	f.edited[ref.MessageID] = append(f.edited[ref.MessageID], msg)
	return nil
}

func (f *fakeChat) DeleteMessage(_ context.Context, ref MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure("delete"); err != nil {
		return err
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeChat) EnsureRole(_ context.Context, guildID, name string) (Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure("ensure_role"); err != nil {
		return Role{}, err
	}
	if role, ok := f.roles[name]; ok {
		return role, nil
	}
	role := Role{ID: fmt.Sprintf("r%d", len(f.roles)+1), Name: name}
	f.roles[name] = role
	return role, nil
}

func (f *fakeChat) GrantRole(_ context.Context, member Member, role Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure("grant"); err != nil {
		return err
	}
	for _, held := range f.granted[member.ID] {
		if held == role.Name {
			return nil
		}
	}
	f.granted[member.ID] = append(f.granted[member.ID], role.Name)
	return nil
}

func (f *fakeChat) RenameMember(_ context.Context, member Member, nickname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure("rename"); err != nil {
		return err
	}
	f.nickname[member.ID] = nickname
	return nil
}

func (f *fakeChat) IsRequester(actorID string, rec *Record) bool {
	return rec != nil && rec.Requester.ID == actorID
}

func (f *fakeChat) sentTo(channelID string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.Ref.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeChat) wasDeleted(ref MessageRef) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.deleted {
		if d == ref {
			return true
		}
	}
	return false
}

func (f *fakeChat) grantCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, roles := range f.granted {
		n += len(roles)
	}
	return n
}

// ------------------------
// Fake user store
// ------------------------

type fakeUsers struct {
	mu        sync.Mutex
	rows      []VerifiedUser
	insertErr error
	findErr   error
	inserts   int
}

func (f *fakeUsers) FindByGameAndUsername(_ context.Context, g game.Game, username string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return "", false, f.findErr
	}
	for _, row := range f.rows {
		if row.Game == g && strings.EqualFold(row.Username, username) {
			return row.RequesterID, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeUsers) FindByRequester(_ context.Context, requesterID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return "", false, f.findErr
	}
	for _, row := range f.rows {
		if row.RequesterID == requesterID {
			return row.Username, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeUsers) Insert(_ context.Context, user VerifiedUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		err := f.insertErr
		f.insertErr = nil
		return err
	}
	f.rows = append(f.rows, user)
	return nil
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// ------------------------
// Fake settings and events
// ------------------------

type fakeSettings struct {
	verification string
	admin        string
	overrides    map[string]string
	memberRole   string
}

func (f *fakeSettings) Channels() (string, string, error) {
	if f.verification == "" || f.admin == "" {
		return "", "", ErrNotConfigured
	}
	return f.verification, f.admin, nil
}

func (f *fakeSettings) EmojiOverrides() map[string]string { return f.overrides }

func (f *fakeSettings) MemberRoleName() string {
	if f.memberRole == "" {
		return "Member"
	}
	return f.memberRole
}

type fakeEvents struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (f *fakeEvents) Publish(_ context.Context, ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeEvents) kinds() []EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]EventKind, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Kind)
	}
	return out
}

var errBoom = errors.New("boom")

const (
	verifyChannel = "verify-chan"
	adminChannel  = "admin-chan"
	guildID       = "guild-1"
)

type harness struct {
	engine   *Engine
	registry *Registry
	chat     *fakeChat
	users    *fakeUsers
	settings *fakeSettings
	events   *fakeEvents
}

func newHarness() *harness {
	h := &harness{
		registry: NewRegistry(),
		chat:     newFakeChat(),
		users:    &fakeUsers{},
		settings: &fakeSettings{verification: verifyChannel, admin: adminChannel, overrides: map[string]string{"france": "flag_fr"}},
		events:   &fakeEvents{},
	}
	h.engine = NewEngine(EngineDeps{
		Registry: h.registry,
		Guard:    NewGuard(h.users, h.registry),
		Chat:     h.chat,
		Users:    h.users,
		Settings: h.settings,
		Events:   h.events,
	})
	return h
}

func member(id string) Member {
	return Member{ID: id, GuildID: guildID, DisplayName: "user-" + id}
}

func osuProfile(username, country string) game.Profile {
	return game.Profile{
		Game:     game.Osu,
		ID:       1234,
		Username: username,
		Country:  country,
		Ranks:    game.Ranks{Global: game.Uint(100), Country: game.Uint(5)},
		Link:     "https://osu.ppy.sh/users/1234",
	}
}
