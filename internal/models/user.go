package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет пользователя в системе
type User struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TelegramID *int64    `json:"telegram_id,omitempty" gorm:"uniqueIndex"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Role       string    `json:"role" gorm:"not null;default:user"`
	CreatedAt  time.Time `json:"created_at"`
}
