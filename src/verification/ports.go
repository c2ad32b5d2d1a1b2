package verification

import (
	"context"
	"time"

	"github.com/stake-plus/sevenkey-bot/src/game"
)

// ButtonStyle hints how a button should be rendered.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSuccess
	ButtonDanger
)

// Button is an affordance carrying an action token.
type Button struct {
	Label string
	Token string
	Style ButtonStyle
}

// Field is a name/value pair shown with a message.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is platform-neutral message content. The chat adapter decides how to
// render it.
type Message struct {
	Title       string
	Description string
	URL         string
	ImageURL    string
	Color       int
	Fields      []Field
	Buttons     []Button
}

// Role is a chat-server role.
type Role struct {
	ID   string
	Name string
}

// ChatClient is the subset of the chat platform the engine needs.
type ChatClient interface {
	SendMessage(ctx context.Context, channelID string, msg Message) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, msg Message) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	// EnsureRole returns the role with the given name, creating it if needed.
	EnsureRole(ctx context.Context, guildID, name string) (Role, error)
	GrantRole(ctx context.Context, member Member, role Role) error
	RenameMember(ctx context.Context, member Member, nickname string) error
	IsRequester(actorID string, rec *Record) bool
}

// VerifiedUser is one row of the durable users table.
type VerifiedUser struct {
	RequesterID string
	Game        game.Game
	ExternalID  uint32
	Username    string
	Country     string
}

// UserStore is the durable users table.
type UserStore interface {
	FindByGameAndUsername(ctx context.Context, g game.Game, username string) (requesterID string, found bool, err error)
	FindByRequester(ctx context.Context, requesterID string) (username string, found bool, err error)
	Insert(ctx context.Context, user VerifiedUser) error
}

// Settings is the read-only configuration the engine consumes.
type Settings interface {
	// Channels returns ErrNotConfigured when either channel is unset.
	Channels() (verificationChannel, adminChannel string, err error)
	EmojiOverrides() map[string]string
	MemberRoleName() string
}

// CountryLookup converts between alpha-2 codes and display names.
type CountryLookup interface {
	Name(code string) (string, bool)
	Code(nameOrCode string) (string, bool)
}

// EventKind labels a workflow transition.
type EventKind string

const (
	EventCreated          EventKind = "created"
	EventAwaitingCountry  EventKind = "awaiting_country"
	EventAwaitingDecision EventKind = "awaiting_decision"
	EventApproved         EventKind = "approved"
	EventDenied           EventKind = "denied"
	EventFailed           EventKind = "failed"
	EventRejected         EventKind = "rejected"
)

// Event describes a transition for observers such as metrics or a stream.
type Event struct {
	Kind        EventKind
	ID          uint64
	RequesterID string
	ActorID     string
	Game        game.Game
	Username    string
	Country     string
	Reason      string
	At          time.Time
}

// EventSink receives workflow events. Errors are logged by the engine.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// Sinks fans an event out to several sinks.
type Sinks []EventSink

// Publish implements EventSink and returns the first error.
func (s Sinks) Publish(ctx context.Context, ev Event) error {
	var first error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
