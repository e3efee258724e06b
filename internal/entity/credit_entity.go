package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

// TransactionType is a closed enumeration. Adding a value is a breaking contract
// change for downstream analytics.
const (
	TransactionTypeUsage       TransactionType = "usage"
	TransactionTypePurchase    TransactionType = "purchase"
	TransactionTypeRefund      TransactionType = "refund"
	TransactionTypePromotional TransactionType = "promotional"
	TransactionTypeAdjustment  TransactionType = "adjustment"
	TransactionTypeSelfUsage   TransactionType = "self_usage"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeUsage, TransactionTypePurchase, TransactionTypeRefund,
		TransactionTypePromotional, TransactionTypeAdjustment, TransactionTypeSelfUsage:
		return true
	}
	return false
}

// AccruesLifetime reports whether this type counts toward LifetimeCredits.
func (t TransactionType) AccruesLifetime() bool {
	return t == TransactionTypePurchase || t == TransactionTypePromotional
}

const (
	TokenTypeInput  = "input"
	TokenTypeOutput = "output"
)

type CreditTransaction struct {
	Id              uuid.UUID
	UserId          uuid.UUID
	TransactionType TransactionType
	Amount          decimal.Decimal
	Description     *string
	MessageId       *uuid.UUID
	TokenAmount     *int64
	TokenType       *string
	ModelId         *string
	CreatedAt       time.Time
}

type UserCredits struct {
	UserId          uuid.UUID
	CreditBalance   decimal.Decimal
	LifetimeCredits decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ZeroUserCredits is the well-defined result for users with no ledger activity
// yet. Reads never provision rows.
func ZeroUserCredits(userId uuid.UUID) *UserCredits {
	return &UserCredits{
		UserId:          userId,
		CreditBalance:   decimal.Zero,
		LifetimeCredits: decimal.Zero,
	}
}
