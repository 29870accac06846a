// internal/app/quota/quota.go

// Package quota computes how many more members a group may take: the
// free-tier limit, unless a paid account sponsors the group with a higher
// one, unless size limiting is switched off entirely.
package quota

import (
	"context"

	"github.com/dalemusser/civihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Unlimited is the capacity reported when size limiting is disabled.
const Unlimited = int(^uint(0) >> 1) // max int

// DefaultFreeTierLimit applies when no explicit limit is configured.
const DefaultFreeTierLimit = 300

// AccountLookup resolves the paid account (if any) sponsoring a group.
// A nil account with a nil error means no sponsor.
type AccountLookup interface {
	FindAccountForGroup(ctx context.Context, groupID primitive.ObjectID) (*models.Account, error)
}

// MemberCounter reports a group's current membership count.
type MemberCounter interface {
	CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error)
}

// Config controls the guard.
type Config struct {
	// LimitEnabled switches group size limiting on. When false every
	// group has effectively unbounded capacity.
	LimitEnabled bool
	// FreeTierLimit is the member cap for groups without a paid account.
	FreeTierLimit int
}

// Guard answers capacity questions for groups.
type Guard struct {
	accounts AccountLookup
	members  MemberCounter
	cfg      Config
}

func New(accounts AccountLookup, members MemberCounter, cfg Config) *Guard {
	if cfg.FreeTierLimit <= 0 {
		cfg.FreeTierLimit = DefaultFreeTierLimit
	}
	return &Guard{accounts: accounts, members: members, cfg: cfg}
}

// RemainingCapacity returns how many members the group can still take:
// max(0, limit - current), where limit is the paid account override when
// one exists, else the free-tier limit. Unlimited when limiting is off.
func (g *Guard) RemainingCapacity(ctx context.Context, groupID primitive.ObjectID) (int, error) {
	if !g.cfg.LimitEnabled {
		return Unlimited, nil
	}

	limit := g.cfg.FreeTierLimit
	acct, err := g.accounts.FindAccountForGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}
	if acct != nil && acct.MaxSizePerGroup > 0 {
		limit = acct.MaxSizePerGroup
	}

	current, err := g.members.CountByGroup(ctx, groupID)
	if err != nil {
		return 0, err
	}

	remaining := limit - int(current)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// CanAdd reports whether n more members fit. The boundary is exclusive:
// when remaining == n the add is rejected. It also returns the remaining
// capacity so callers can report it in quota errors.
func (g *Guard) CanAdd(ctx context.Context, groupID primitive.ObjectID, n int) (bool, int, error) {
	remaining, err := g.RemainingCapacity(ctx, groupID)
	if err != nil {
		return false, 0, err
	}
	return remaining > n, remaining, nil
}
