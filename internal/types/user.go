package types

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExternalAuthID string    `gorm:"column:external_auth_id;uniqueIndex;not null" json:"external_auth_id"`
	Email          string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	FirstName      string    `gorm:"column:first_name" json:"first_name"`
	LastName       string    `gorm:"column:last_name" json:"last_name"`
	AvatarURL      string    `gorm:"column:avatar_url" json:"avatar_url"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "user" }
