package contract

import (
	"context"

	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PurchaseOrderRepository interface {
	Create(ctx context.Context, order *entity.CreditPurchaseOrder) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CreditPurchaseOrder, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditPurchaseOrder, error)
	// MarkSettled flips a pending order to settled and stores the webhook
	// payload. Returns false when the order was not pending anymore, which is
	// how webhook replays are detected.
	MarkSettled(ctx context.Context, id uuid.UUID, rawPayload []byte) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.PurchaseOrderStatus, rawPayload []byte) error
}
