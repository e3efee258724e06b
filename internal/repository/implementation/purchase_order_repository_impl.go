package implementation

import (
	"context"
	"errors"
	"time"

	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/mapper"
	"ai-agenthub-be/internal/model"
	"ai-agenthub-be/internal/repository/contract"
	"ai-agenthub-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PurchaseOrderRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PurchaseMapper
}

func NewPurchaseOrderRepository(db *gorm.DB) contract.PurchaseOrderRepository {
	return &PurchaseOrderRepositoryImpl{
		db:     db,
		mapper: mapper.NewPurchaseMapper(),
	}
}

func (r *PurchaseOrderRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *PurchaseOrderRepositoryImpl) Create(ctx context.Context, order *entity.CreditPurchaseOrder) error {
	m := r.mapper.ToModel(order)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*order = *r.mapper.ToEntity(m)
	return nil
}

func (r *PurchaseOrderRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CreditPurchaseOrder, error) {
	var m model.CreditPurchaseOrder
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PurchaseOrderRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditPurchaseOrder, error) {
	var models []*model.CreditPurchaseOrder
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.CreditPurchaseOrder, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

// MarkSettled only succeeds while the order is still pending. A replayed
// webhook finds the row already settled, gets RowsAffected == 0 and false back.
func (r *PurchaseOrderRepositoryImpl) MarkSettled(ctx context.Context, id uuid.UUID, rawPayload []byte) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.CreditPurchaseOrder{}).
		Where("id = ? AND status = ?", id, string(entity.PurchaseOrderStatusPending)).
		Updates(map[string]interface{}{
			"status":      string(entity.PurchaseOrderStatusSettled),
			"settled_at":  now,
			"raw_payload": datatypes.JSON(rawPayload),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PurchaseOrderRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.PurchaseOrderStatus, rawPayload []byte) error {
	updates := map[string]interface{}{"status": string(status)}
	if rawPayload != nil {
		updates["raw_payload"] = datatypes.JSON(rawPayload)
	}
	return r.db.WithContext(ctx).
		Model(&model.CreditPurchaseOrder{}).
		Where("id = ?", id).
		Updates(updates).Error
}
