package verification

import (
	"errors"
	"fmt"

	"github.com/stake-plus/sevenkey-bot/src/roles"
)

// Sentinel errors returned by the registry and the engine. Handlers translate
// them with UserMessage; none of them is fatal to the process.
var (
	// ErrNotConfigured indicates the admin or verification channel is not set.
	ErrNotConfigured = errors.New("verification is not configured")

	// ErrWrongChannel indicates a request arrived outside the verification channel.
	ErrWrongChannel = errors.New("not the verification channel")

	// ErrNotFound indicates the id was never issued or is not yet visible.
	ErrNotFound = errors.New("verification request not found")

	// ErrAlreadyResolved indicates the record existed and has been removed.
	ErrAlreadyResolved = errors.New("verification request already resolved")

	// ErrNotReady indicates the record is not in the state the action requires.
	ErrNotReady = errors.New("verification request is not ready for this action")

	// ErrUnauthorized indicates the actor may not act on the record.
	ErrUnauthorized = errors.New("not allowed to act on this verification request")

	// ErrUnknownCountry indicates a country that is not in the country table.
	ErrUnknownCountry = errors.New("unknown country")

	// ErrIDNotIssued indicates an insert under an id the registry never issued.
	ErrIDNotIssued = errors.New("verification id was not issued")

	// ErrDuplicateID indicates an insert under an id that already holds a record.
	ErrDuplicateID = errors.New("verification id already in use")

	// ErrAlreadyClaimed is matched by AlreadyClaimedError.
	ErrAlreadyClaimed = errors.New("game account already claimed")

	// ErrRequesterAlreadyVerified is matched by RequesterVerifiedError.
	ErrRequesterAlreadyVerified = errors.New("requester already verified")

	// ErrAlreadyPending is matched by PendingError.
	ErrAlreadyPending = errors.New("requester already has a pending verification")

	// ErrSideEffect is matched by StepError.
	ErrSideEffect = errors.New("chat side effect failed")

	// ErrNoEmojiForCountry is re-exported from the role resolver.
	ErrNoEmojiForCountry = roles.ErrNoEmojiForCountry
)

// AlreadyClaimedError reports the chat user already holding the game account.
type AlreadyClaimedError struct {
	OtherRequesterID string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("game account already claimed by %s", e.OtherRequesterID)
}

func (e *AlreadyClaimedError) Is(target error) bool { return target == ErrAlreadyClaimed }

// RequesterVerifiedError reports the username the requester is already verified as.
type RequesterVerifiedError struct {
	ExistingUsername string
}

func (e *RequesterVerifiedError) Error() string {
	return fmt.Sprintf("requester already verified as %s", e.ExistingUsername)
}

func (e *RequesterVerifiedError) Is(target error) bool { return target == ErrRequesterAlreadyVerified }

// PendingError reports the id of the requester's open request.
type PendingError struct {
	ID uint64
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("requester already has pending verification #%d", e.ID)
}

func (e *PendingError) Is(target error) bool { return target == ErrAlreadyPending }

// NotReadyError carries the state the record was in when the action was refused.
type NotReadyError struct {
	State State
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("verification request is %s", e.State)
}

func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }

func notReady(state State) error { return &NotReadyError{State: state} }

// StepError wraps a failed chat-platform or store call with the step it belongs to.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func (e *StepError) Is(target error) bool { return target == ErrSideEffect }

func stepErr(step Step, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}

const notConfiguredMessage = "The bot is not yet configured, an admin needs to use the /config command"

// UserMessage turns an engine error into the text shown to the initiating user.
func UserMessage(err error) string {
	var (
		claimed  *AlreadyClaimedError
		verified *RequesterVerifiedError
		pending  *PendingError
		noEmoji  *roles.NoEmojiError
		notReady *NotReadyError
		step     *StepError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return notConfiguredMessage
	case errors.As(err, &claimed):
		return fmt.Sprintf("This account has already been verified by <@%s>.", claimed.OtherRequesterID)
	case errors.As(err, &verified):
		return fmt.Sprintf("You are already verified as **%s**.", verified.ExistingUsername)
	case errors.As(err, &pending):
		return fmt.Sprintf("You already have a pending verification request (#%d).", pending.ID)
	case errors.As(err, &noEmoji):
		return fmt.Sprintf("Could not find an emoji for %s. Add one with /config emoji_override and try again.", noEmoji.Country)
	case errors.Is(err, ErrUnauthorized):
		return "Only the member who requested this verification can choose its country."
	case errors.Is(err, ErrUnknownCountry):
		return "That country was not recognised. Use a country name or a two letter code such as FR."
	case errors.Is(err, ErrAlreadyResolved):
		return "This verification request has already been resolved."
	case errors.As(err, &notReady) && notReady.State == StateAwaitingCountry:
		return "This verification request is still waiting for a country."
	case errors.As(err, &notReady) && notReady.State == StateAwaitingDecision:
		return "The country for this request has already been chosen, it is waiting for an admin decision."
	case errors.Is(err, ErrNotReady):
		return "Could not find that verification request."
	case errors.Is(err, ErrNotFound):
		return "Could not find that verification request."
	case errors.As(err, &step):
		return fmt.Sprintf("Verification step failed (%s): %v", step.Step, step.Err)
	default:
		return fmt.Sprintf("Verification failed: %v", err)
	}
}
