package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlatformConfig holds marketplace-wide fee and payout settings. Exactly one
// row is active at a time; resets deactivate the old row.
type PlatformConfig struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PlatformFeePercentage decimal.Decimal `gorm:"column:platform_fee_percentage;type:numeric(5,2);not null" json:"platform_fee_percentage"`
	MinimumPayoutCents    int64           `gorm:"column:minimum_payout_cents;not null" json:"minimum_payout_cents"`
	ProcessingFeeCents    int64           `gorm:"column:processing_fee_cents;not null" json:"processing_fee_cents"`
	HoldPeriodDays        int             `gorm:"column:hold_period_days;not null" json:"hold_period_days"`
	MaximumPayoutCents    int64           `gorm:"column:maximum_payout_cents;not null" json:"maximum_payout_cents"`
	AutoPayout            bool            `gorm:"column:auto_payout;not null;default:false" json:"auto_payout"`
	Currency              string          `gorm:"column:currency;not null" json:"currency"`
	IsActive              bool            `gorm:"column:is_active;not null" json:"is_active"`
	UpdatedBy             *uuid.UUID      `gorm:"column:updated_by;type:uuid" json:"updated_by,omitempty"`
	DeactivatedAt         *time.Time      `gorm:"column:deactivated_at" json:"deactivated_at,omitempty"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PlatformConfig) TableName() string { return "platform_configs" }
