package mapper

import (
	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/model"

	"gorm.io/datatypes"
)

type PurchaseMapper struct{}

func NewPurchaseMapper() *PurchaseMapper {
	return &PurchaseMapper{}
}

func (m *PurchaseMapper) ToEntity(o *model.CreditPurchaseOrder) *entity.CreditPurchaseOrder {
	if o == nil {
		return nil
	}
	return &entity.CreditPurchaseOrder{
		Id:           o.Id,
		UserId:       o.UserId,
		CreditAmount: o.CreditAmount,
		Price:        o.Price,
		Status:       entity.PurchaseOrderStatus(o.Status),
		RawPayload:   []byte(o.RawPayload),
		SettledAt:    o.SettledAt,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func (m *PurchaseMapper) ToModel(o *entity.CreditPurchaseOrder) *model.CreditPurchaseOrder {
	if o == nil {
		return nil
	}
	return &model.CreditPurchaseOrder{
		Id:           o.Id,
		UserId:       o.UserId,
		CreditAmount: o.CreditAmount,
		Price:        o.Price,
		Status:       string(o.Status),
		RawPayload:   datatypes.JSON(o.RawPayload),
		SettledAt:    o.SettledAt,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}
