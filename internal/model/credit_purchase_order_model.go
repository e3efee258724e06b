package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CreditPurchaseOrder tracks one credit pack checkout. Its Id is also the
// midtrans order id, which makes it the natural idempotency key for webhook
// replays: an order only moves pending -> settled once.
type CreditPurchaseOrder struct {
	Id           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserId       uuid.UUID       `gorm:"type:uuid;not null;index"`
	CreditAmount decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Price        decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Status       string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	RawPayload   datatypes.JSON  `gorm:"type:jsonb"`
	SettledAt    *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (CreditPurchaseOrder) TableName() string {
	return "credit_purchase_orders"
}
