package cache

import (
	"context"

	"ai-agenthub-be/internal/entity"

	"github.com/google/uuid"
)

// BalanceCache holds a best-effort, TTL-bound snapshot of a user's
// materialized credits row. It is never authoritative: every reader must
// tolerate a miss and fall back to the ledger store, and dropping the whole
// cache is always safe. The TTL bounds staleness if a write path ever skips
// the refresh.
type BalanceCache interface {
	Get(ctx context.Context, userId uuid.UUID) (*entity.UserCredits, bool, error)
	Set(ctx context.Context, userId uuid.UUID, credits *entity.UserCredits) error
	Invalidate(ctx context.Context, userId uuid.UUID) error
}
