package contract

import (
	"context"

	"ai-agenthub-be/internal/entity"

	"github.com/google/uuid"
)

// ChatMessageRepository is read-mostly here: the chat service owns these rows,
// the ledger joins them into transaction history.
type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	FindByIds(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.ChatMessage, error)
}
