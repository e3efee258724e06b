package mapper

import (
	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/model"
)

type CreditMapper struct{}

func NewCreditMapper() *CreditMapper {
	return &CreditMapper{}
}

func (m *CreditMapper) ToTransactionEntity(t *model.CreditTransaction) *entity.CreditTransaction {
	if t == nil {
		return nil
	}
	return &entity.CreditTransaction{
		Id:              t.Id,
		UserId:          t.UserId,
		TransactionType: entity.TransactionType(t.TransactionType),
		Amount:          t.Amount,
		Description:     t.Description,
		MessageId:       t.MessageId,
		TokenAmount:     t.TokenAmount,
		TokenType:       t.TokenType,
		ModelId:         t.ModelId,
		CreatedAt:       t.CreatedAt,
	}
}

func (m *CreditMapper) ToTransactionModel(t *entity.CreditTransaction) *model.CreditTransaction {
	if t == nil {
		return nil
	}
	return &model.CreditTransaction{
		Id:              t.Id,
		UserId:          t.UserId,
		TransactionType: string(t.TransactionType),
		Amount:          t.Amount,
		Description:     t.Description,
		MessageId:       t.MessageId,
		TokenAmount:     t.TokenAmount,
		TokenType:       t.TokenType,
		ModelId:         t.ModelId,
		CreatedAt:       t.CreatedAt,
	}
}

func (m *CreditMapper) ToUserCreditsEntity(c *model.UserCredits) *entity.UserCredits {
	if c == nil {
		return nil
	}
	return &entity.UserCredits{
		UserId:          c.UserId,
		CreditBalance:   c.CreditBalance,
		LifetimeCredits: c.LifetimeCredits,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func (m *CreditMapper) ToUserCreditsModel(c *entity.UserCredits) *model.UserCredits {
	if c == nil {
		return nil
	}
	return &model.UserCredits{
		UserId:          c.UserId,
		CreditBalance:   c.CreditBalance,
		LifetimeCredits: c.LifetimeCredits,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
