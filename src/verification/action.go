package verification

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind is the verb embedded in a UI affordance.
type ActionKind string

const (
	ActionApprove       ActionKind = "verify"
	ActionDeny          ActionKind = "deny"
	ActionCountry       ActionKind = "country"
	ActionCountrySubmit ActionKind = "country_submit"
)

// Action is the decoded form of a component custom id such as "verify:12".
type Action struct {
	Kind ActionKind
	ID   uint64
}

// Token encodes the action for use as a component custom id.
func (a Action) Token() string {
	return string(a.Kind) + ":" + strconv.FormatUint(a.ID, 10)
}

// ParseAction decodes a token produced by Action.Token.
func ParseAction(token string) (Action, error) {
	kind, rawID, ok := strings.Cut(strings.TrimSpace(token), ":")
	if !ok {
		return Action{}, fmt.Errorf("malformed action token %q", token)
	}

	switch ActionKind(kind) {
	case ActionApprove, ActionDeny, ActionCountry, ActionCountrySubmit:
	default:
		return Action{}, fmt.Errorf("unknown action %q", kind)
	}

	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return Action{}, fmt.Errorf("invalid verification id in %q: %w", token, err)
	}
	return Action{Kind: ActionKind(kind), ID: id}, nil
}
