package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserCredits is the materialized balance, one row per user. CreditBalance may
// go negative (usage is charged after the fact); LifetimeCredits only ever grows
// and only on purchase/promotional transactions.
type UserCredits struct {
	UserId          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CreditBalance   decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0"`
	LifetimeCredits decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime"`
}

func (UserCredits) TableName() string {
	return "user_credits"
}
