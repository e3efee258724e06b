package implementation

import (
	"context"
	"errors"

	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/mapper"
	"ai-agenthub-be/internal/model"
	"ai-agenthub-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserCreditsRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CreditMapper
}

func NewUserCreditsRepository(db *gorm.DB) contract.UserCreditsRepository {
	return &UserCreditsRepositoryImpl{
		db:     db,
		mapper: mapper.NewCreditMapper(),
	}
}

// ApplyDelta is the only write path for user_credits. It compiles to a single
// INSERT ... ON CONFLICT DO UPDATE ... RETURNING, so the balance adjustment is
// a row-level atomic increment, first write provisions the row, and the
// returned snapshot comes from the same statement. Never replace this with a
// read-modify-write: two concurrent charges for one user would lose an update.
func (r *UserCreditsRepositoryImpl) ApplyDelta(ctx context.Context, userId uuid.UUID, amount, lifetimeDelta decimal.Decimal) (*entity.UserCredits, error) {
	m := &model.UserCredits{
		UserId:          userId,
		CreditBalance:   amount,
		LifetimeCredits: lifetimeDelta,
	}

	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"credit_balance":   gorm.Expr("user_credits.credit_balance + EXCLUDED.credit_balance"),
					"lifetime_credits": gorm.Expr("user_credits.lifetime_credits + EXCLUDED.lifetime_credits"),
					"updated_at":       gorm.Expr("now()"),
				}),
			},
			clause.Returning{},
		).
		Create(m).Error
	if err != nil {
		return nil, err
	}

	return r.mapper.ToUserCreditsEntity(m), nil
}

func (r *UserCreditsRepositoryImpl) FindByUserId(ctx context.Context, userId uuid.UUID) (*entity.UserCredits, error) {
	var m model.UserCredits
	err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToUserCreditsEntity(&m), nil
}
