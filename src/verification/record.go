package verification

import (
	"time"

	"github.com/stake-plus/sevenkey-bot/src/game"
)

// State is the workflow position of a record.
type State string

const (
	StateCreated          State = "created"
	StateAwaitingCountry  State = "awaiting_country"
	StateAwaitingDecision State = "awaiting_decision"
	StateApproved         State = "approved"
	StateDenied           State = "denied"
	StateFailed           State = "failed"
)

// Resolved reports whether the state is terminal.
func (s State) Resolved() bool {
	switch s {
	case StateApproved, StateDenied, StateFailed:
		return true
	}
	return false
}

// Step names one side effect of the workflow.
type Step string

const (
	StepPostPrompt        Step = "post admin prompt"
	StepPostStatus        Step = "post status message"
	StepPostCountryPrompt Step = "post country prompt"
	StepEnsureRole        Step = "create country role"
	StepGrantRole         Step = "grant country role"
	StepEnsureMemberRole  Step = "find member role"
	StepGrantMemberRole   Step = "grant member role"
	StepRename            Step = "rename member"
	StepSaveUser          Step = "save verified user"
	StepUpdateStatus      Step = "update status message"
	StepDeletePrompt      Step = "delete admin prompt"
	StepCheckDuplicates   Step = "check duplicates"
)

// Member identifies a chat-server member.
type Member struct {
	ID          string
	GuildID     string
	DisplayName string
}

// MessageRef is an opaque handle to a posted message.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Record is one in-flight verification request.
type Record struct {
	ID               uint64
	Requester        Member
	Profile          game.Profile
	ChannelID        string
	State            State
	PromptRef        *MessageRef
	StatusRef        *MessageRef
	CountryPromptRef *MessageRef
	CreatedAt        time.Time

	completed map[Step]bool
}

// Snapshot returns a deep copy of the record.
func (r *Record) Snapshot() Record {
	out := *r
	out.Profile = r.Profile.Clone()
	out.PromptRef = copyRef(r.PromptRef)
	out.StatusRef = copyRef(r.StatusRef)
	out.CountryPromptRef = copyRef(r.CountryPromptRef)
	if r.completed != nil {
		out.completed = make(map[Step]bool, len(r.completed))
		for k, v := range r.completed {
			out.completed[k] = v
		}
	}
	return out
}

// Completed reports whether a non-idempotent step already succeeded.
func (r *Record) Completed(step Step) bool {
	return r.completed[step]
}

func (r *Record) markCompleted(step Step) {
	if r.completed == nil {
		r.completed = make(map[Step]bool)
	}
	r.completed[step] = true
}

func copyRef(ref *MessageRef) *MessageRef {
	if ref == nil {
		return nil
	}
	c := *ref
	return &c
}
