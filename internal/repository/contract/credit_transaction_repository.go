package contract

import (
	"context"

	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditTransactionRepository is insert-only. The ledger is append-only; there
// is deliberately no Update or Delete.
type CreditTransactionRepository interface {
	Create(ctx context.Context, transaction *entity.CreditTransaction) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CreditTransaction, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditTransaction, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SumAmountByUser recomputes the balance from the full transaction log.
	// Used for reconciliation against the materialized UserCredits row.
	SumAmountByUser(ctx context.Context, userId uuid.UUID) (decimal.Decimal, error)
}
