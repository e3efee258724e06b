package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserOwnedBy scopes rows to one user
type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// ByTransactionType filters ledger history by the closed type enumeration
type ByTransactionType struct {
	Type string
}

func (s ByTransactionType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("transaction_type = ?", s.Type)
}

// CreatedFrom filters rows created at or after the given instant
type CreatedFrom struct {
	From time.Time
}

func (s CreatedFrom) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at >= ?", s.From)
}

// CreatedTo filters rows created at or before the given instant
type CreatedTo struct {
	To time.Time
}

func (s CreatedTo) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at <= ?", s.To)
}
