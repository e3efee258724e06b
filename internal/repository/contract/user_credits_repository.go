package contract

import (
	"context"

	"ai-agenthub-be/internal/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UserCreditsRepository interface {
	// ApplyDelta adds amount to the user's balance (and lifetimeDelta to
	// lifetime credits) as a single atomic relative increment, provisioning
	// the row inline if it does not exist yet. The returned snapshot is read
	// back from the same statement, never from a follow-up query.
	ApplyDelta(ctx context.Context, userId uuid.UUID, amount, lifetimeDelta decimal.Decimal) (*entity.UserCredits, error)
	FindByUserId(ctx context.Context, userId uuid.UUID) (*entity.UserCredits, error)
}
