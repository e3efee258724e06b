package unitofwork

import (
	"context"

	"ai-agenthub-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	CreditTransactionRepository() contract.CreditTransactionRepository
	UserCreditsRepository() contract.UserCreditsRepository
	PurchaseOrderRepository() contract.PurchaseOrderRepository
	ChatMessageRepository() contract.ChatMessageRepository
}
