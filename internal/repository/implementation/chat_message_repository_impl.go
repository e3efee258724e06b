package implementation

import (
	"context"

	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/mapper"
	"ai-agenthub-be/internal/model"
	"ai-agenthub-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage) error {
	m := r.mapper.ToMessageModel(message)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.ToMessageEntity(m)
	return nil
}

func (r *ChatMessageRepositoryImpl) FindByIds(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.ChatMessage, error) {
	result := make(map[uuid.UUID]*entity.ChatMessage, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var models []*model.ChatMessage
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	for _, m := range models {
		result[m.Id] = r.mapper.ToMessageEntity(m)
	}
	return result, nil
}
