package verification

import (
	"context"
	"fmt"

	"github.com/stake-plus/sevenkey-bot/src/game"
)

// PendingLookup reports a requester's live record.
type PendingLookup interface {
	PendingFor(requesterID string) (uint64, bool)
}

// Guard rejects verification of an already-claimed game account or an
// already-verified chat user.
type Guard struct {
	users   UserStore
	pending PendingLookup
}

// NewGuard builds a guard. pending may be nil.
func NewGuard(users UserStore, pending PendingLookup) *Guard {
	return &Guard{users: users, pending: pending}
}

// Check runs the pending-request check followed by the durable checks.
func (g *Guard) Check(ctx context.Context, gm game.Game, username, requesterID string) error {
	if g.pending != nil {
		if id, ok := g.pending.PendingFor(requesterID); ok {
			return &PendingError{ID: id}
		}
	}
	return g.CheckDurable(ctx, gm, username, requesterID)
}

// CheckDurable queries the users table only.
func (g *Guard) CheckDurable(ctx context.Context, gm game.Game, username, requesterID string) error {
	owner, found, err := g.users.FindByGameAndUsername(ctx, gm, username)
	if err != nil {
		return fmt.Errorf("lookup %s account %s: %w", gm, username, err)
	}
	if found && owner != requesterID {
		return &AlreadyClaimedError{OtherRequesterID: owner}
	}

	existing, found, err := g.users.FindByRequester(ctx, requesterID)
	if err != nil {
		return fmt.Errorf("lookup requester %s: %w", requesterID, err)
	}
	if found {
		return &RequesterVerifiedError{ExistingUsername: existing}
	}
	return nil
}
