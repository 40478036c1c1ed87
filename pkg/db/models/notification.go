package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to a user.
type Notification struct {
	ID        uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID                  `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Severity  enums.NotificationSeverity `gorm:"column:severity;not null" json:"severity"`
	Title     string                     `gorm:"column:title;type:text;not null" json:"title"`
	Message   string                     `gorm:"column:message;type:text;not null" json:"message"`
	Link      *string                    `gorm:"column:link;type:text" json:"link,omitempty"`
	ReadAt    *time.Time                 `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
