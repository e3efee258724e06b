package dto

import (
	"time"

	"github.com/google/uuid"
)

// All monetary values cross the API boundary as decimal strings, never floats.

type BalanceResponse struct {
	UserId          uuid.UUID `json:"user_id"`
	CreditBalance   string    `json:"credit_balance"`
	LifetimeCredits string    `json:"lifetime_credits"`
}

type TransactionResponse struct {
	Id              uuid.UUID  `json:"id"`
	TransactionType string     `json:"transaction_type"`
	Amount          string     `json:"amount"`
	Description     string     `json:"description,omitempty"`
	MessageId       *uuid.UUID `json:"message_id,omitempty"`
	MessagePreview  string     `json:"message_preview,omitempty"`
	TokenAmount     *int64     `json:"token_amount,omitempty"`
	TokenType       *string    `json:"token_type,omitempty"`
	ModelId         *string    `json:"model_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type TransactionHistoryResponse struct {
	Items      []*TransactionResponse `json:"items"`
	TotalCount int64                  `json:"total_count"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
}

type HistoryFilter struct {
	TransactionType string     `json:"type,omitempty"`
	From            *time.Time `json:"from,omitempty"`
	To              *time.Time `json:"to,omitempty"`
}

// AdjustCreditRequest is the admin path for refund/promotional/adjustment
// entries. Amount must match the strict decimal pattern; it is rejected before
// any write otherwise.
type AdjustCreditRequest struct {
	UserId          uuid.UUID `json:"user_id" validate:"required"`
	TransactionType string    `json:"transaction_type" validate:"required,oneof=refund promotional adjustment"`
	Amount          string    `json:"amount" validate:"required"`
	Description     string    `json:"description,omitempty"`
}

type ChargeResult struct {
	TransactionIds  []uuid.UUID `json:"transaction_ids"`
	TotalAmount     string      `json:"total_amount"`
	CreditBalance   string      `json:"credit_balance"`
	LifetimeCredits string      `json:"lifetime_credits"`
}
