package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusPending PurchaseOrderStatus = "pending"
	PurchaseOrderStatusSettled PurchaseOrderStatus = "settled"
	PurchaseOrderStatusFailed  PurchaseOrderStatus = "failed"
	PurchaseOrderStatusExpired PurchaseOrderStatus = "expired"
)

type CreditPurchaseOrder struct {
	Id           uuid.UUID
	UserId       uuid.UUID
	CreditAmount decimal.Decimal
	Price        decimal.Decimal
	Status       PurchaseOrderStatus
	RawPayload   []byte
	SettledAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreditPack is a purchasable credit bundle. The catalog is static config, not a
// table: packs change rarely and the order row snapshots what was bought.
type CreditPack struct {
	Slug         string
	Name         string
	CreditAmount decimal.Decimal
	Price        decimal.Decimal
}
