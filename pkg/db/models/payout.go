package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/vaultmart-backend/pkg/db/types"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	"github.com/angelmondragon/vaultmart-backend/pkg/types"
)

// Payout is a seller's request to withdraw available earnings.
type Payout struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SellerID           uuid.UUID           `gorm:"column:seller_id;type:uuid;not null" json:"seller_id"`
	AmountCents        int64               `gorm:"column:amount_cents;not null" json:"amount_cents"`
	GrossCents         int64               `gorm:"column:gross_cents;not null" json:"gross_cents"`
	PlatformFeeCents   int64               `gorm:"column:platform_fee_cents;not null" json:"platform_fee_cents"`
	ProcessingFeeCents int64               `gorm:"column:processing_fee_cents;not null" json:"processing_fee_cents"`
	Currency           string              `gorm:"column:currency;not null" json:"currency"`
	Method             enums.PayoutMethod  `gorm:"column:method;not null" json:"method"`
	Details            types.PayoutDetails `gorm:"column:details;type:jsonb;not null" json:"details"`
	Status             enums.PayoutStatus  `gorm:"column:status;not null" json:"status"`
	PeriodStart        *time.Time          `gorm:"column:period_start" json:"period_start,omitempty"`
	PeriodEnd          *time.Time          `gorm:"column:period_end" json:"period_end,omitempty"`
	OrderIDs           dbtypes.UUIDArray   `gorm:"column:order_ids;type:uuid[]" json:"order_ids"`
	Notes              *string             `gorm:"column:notes" json:"notes,omitempty"`
	FailureReason      *string             `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	RejectionReason    *string             `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	TransactionID      *string             `gorm:"column:transaction_id" json:"transaction_id,omitempty"`
	RequestedAt        time.Time           `gorm:"column:requested_at;not null" json:"requested_at"`
	ApprovedAt         *time.Time          `gorm:"column:approved_at" json:"approved_at,omitempty"`
	ApprovedBy         *uuid.UUID          `gorm:"column:approved_by;type:uuid" json:"approved_by,omitempty"`
	ProcessedAt        *time.Time          `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CompletedAt        *time.Time          `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt        *time.Time          `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Payout) TableName() string { return "payouts" }
