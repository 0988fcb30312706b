package types

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_user_recency,priority:1" json:"user_id"`
	Title     string    `gorm:"column:title;not null;default:'New Chat'" json:"title"`
	CreatedAt time.Time `gorm:"not null;default:now();index:idx_chat_user_recency,priority:2,sort:desc" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Chat) TableName() string { return "chat" }
