package verification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/sevenkey-bot/src/game"
)

func TestGuardAccountClaimedByOther(t *testing.T) {
	users := &fakeUsers{rows: []VerifiedUser{{RequesterID: "42", Game: game.Osu, Username: "alice"}}}
	g := NewGuard(users, nil)

	err := g.Check(context.Background(), game.Osu, "Alice", "99")
	var claimed *AlreadyClaimedError
	require.True(t, errors.As(err, &claimed))
	assert.Equal(t, "42", claimed.OtherRequesterID)
	assert.Equal(t, "This account has already been verified by <@42>.", UserMessage(err))

	assert.NoError(t, g.Check(context.Background(), game.Quaver, "alice", "99"), "claims are per game")
}

func TestGuardRequesterAlreadyVerified(t *testing.T) {
	users := &fakeUsers{rows: []VerifiedUser{{RequesterID: "42", Game: game.Osu, Username: "alice"}}}
	g := NewGuard(users, nil)

	err := g.Check(context.Background(), game.Osu, "bob", "42")
	var verified *RequesterVerifiedError
	require.True(t, errors.As(err, &verified))
	assert.Equal(t, "alice", verified.ExistingUsername)
	assert.ErrorIs(t, err, ErrRequesterAlreadyVerified)

	// re-verifying the account you already own is still a duplicate
	err = g.Check(context.Background(), game.Osu, "alice", "42")
	assert.ErrorIs(t, err, ErrRequesterAlreadyVerified)
}

func TestGuardPendingAndStoreErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert(r.IssueID(), &Record{Requester: member("42")}))

	users := &fakeUsers{}
	g := NewGuard(users, r)
	assert.ErrorIs(t, g.Check(context.Background(), game.Osu, "alice", "42"), ErrAlreadyPending)
	assert.NoError(t, g.CheckDurable(context.Background(), game.Osu, "alice", "42"))

	users.findErr = errBoom
	err := g.Check(context.Background(), game.Osu, "alice", "7")
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrAlreadyClaimed)
}
