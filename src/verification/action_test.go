package verification

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/sevenkey-bot/src/roles"
)

func TestParseAction(t *testing.T) {
	for _, a := range []Action{
		{Kind: ActionApprove, ID: 0},
		{Kind: ActionDeny, ID: 12},
		{Kind: ActionCountry, ID: 7},
		{Kind: ActionCountrySubmit, ID: 1 << 40},
	} {
		got, err := ParseAction(a.Token())
		require.NoError(t, err, a.Token())
		assert.Equal(t, a, got)
	}

	for _, bad := range []string{"", "verify", "verify:", "verify:-1", "approve:3", "deny:x"} {
		_, err := ParseAction(bad)
		assert.Error(t, err, bad)
	}
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrNotConfigured, notConfiguredMessage},
		{fmt.Errorf("create: %w", ErrNotConfigured), notConfiguredMessage},
		{&RequesterVerifiedError{ExistingUsername: "alice"}, "You are already verified as **alice**."},
		{&PendingError{ID: 3}, "You already have a pending verification request (#3)."},
		{ErrAlreadyResolved, "This verification request has already been resolved."},
		{ErrNotFound, "Could not find that verification request."},
		{ErrNotReady, "Could not find that verification request."},
		{notReady(StateAwaitingCountry), "still waiting for a country"},
		{notReady(StateAwaitingDecision), "waiting for an admin decision"},
		{&StepError{Step: StepRename, Err: errBoom}, "Verification step failed (rename member): boom"},
	}
	for _, tc := range cases {
		assert.Contains(t, UserMessage(tc.err), tc.want)
	}

	_, err := roles.RoleNameFor("Nowhere Land", nil)
	assert.Contains(t, UserMessage(err), "/config emoji_override")
}
