package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is owned by the chat service; the ledger only reads it to attach
// a human-readable description to usage transactions in history views.
type ChatMessage struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Role      string    `gorm:"type:varchar(20);not null"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"default:now();not null"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
