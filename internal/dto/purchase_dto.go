package dto

import (
	"time"

	"github.com/google/uuid"
)

type CheckoutRequest struct {
	PackSlug string `json:"pack_slug" validate:"required"`
}

type CheckoutResponse struct {
	OrderId         uuid.UUID `json:"order_id"`
	CreditAmount    string    `json:"credit_amount"`
	Price           string    `json:"price"`
	SnapToken       string    `json:"snap_token"`
	SnapRedirectUrl string    `json:"snap_redirect_url"`
}

type CreditPackResponse struct {
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	CreditAmount string `json:"credit_amount"`
	Price        string `json:"price"`
}

type PurchaseOrderResponse struct {
	Id           uuid.UUID  `json:"id"`
	CreditAmount string     `json:"credit_amount"`
	Price        string     `json:"price"`
	Status       string     `json:"status"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type MidtransWebhookRequest struct {
	TransactionStatus string `json:"transaction_status"`
	OrderId           string `json:"order_id"`
	FraudStatus       string `json:"fraud_status"`
	// Signature validation fields
	SignatureKey string `json:"signature_key"`
	StatusCode   string `json:"status_code"`
	GrossAmount  string `json:"gross_amount"`
}
