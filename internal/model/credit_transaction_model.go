package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditTransaction rows are append-only. No repository exposes an update or
// delete for them; the audit trail depends on that.
type CreditTransaction struct {
	Id              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserId          uuid.UUID       `gorm:"type:uuid;not null;index"`
	TransactionType string          `gorm:"type:varchar(32);not null;index"`
	Amount          decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Description     *string         `gorm:"type:text"`
	MessageId       *uuid.UUID      `gorm:"type:uuid;index"`
	TokenAmount     *int64
	TokenType       *string   `gorm:"type:varchar(16)"`
	ModelId         *string   `gorm:"type:varchar(255);index"`
	CreatedAt       time.Time `gorm:"default:now();not null;index"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
