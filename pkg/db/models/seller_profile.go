package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/vaultmart-backend/pkg/db/types"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
)

// SellerProfile carries the onboarding outputs the settlement and payout code
// consumes, plus the cached counters this system maintains.
type SellerProfile struct {
	SellerID         uuid.UUID              `gorm:"column:seller_id;type:uuid;primaryKey"`
	DisplayName      string                 `gorm:"column:display_name"`
	Status           enums.SellerStatus     `gorm:"column:status;not null"`
	ApprovedAt       *time.Time             `gorm:"column:approved_at"`
	CommissionRate   decimal.NullDecimal    `gorm:"column:commission_rate;type:numeric(5,2)"`
	CommissionStatus enums.CommissionStatus `gorm:"column:commission_status;not null"`

	PayoutMethod  *enums.PayoutMethod          `gorm:"column:payout_method"`
	PayoutDetails dbtypes.JSON[map[string]any] `gorm:"column:payout_details;type:jsonb"`

	TotalSalesCount    int64 `gorm:"column:total_sales_count;not null;default:0"`
	TotalEarningsCents int64 `gorm:"column:total_earnings_cents;not null;default:0"`

	LastPayoutAt        *time.Time `gorm:"column:last_payout_at"`
	LifetimePayoutCents int64      `gorm:"column:lifetime_payout_cents;not null;default:0"`
	PayoutCount         int64      `gorm:"column:payout_count;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SellerProfile) TableName() string { return "seller_profiles" }

// HasAcceptedCommission reports whether a commission rate can be used for earnings.
func (s SellerProfile) HasAcceptedCommission() bool {
	return s.CommissionStatus == enums.CommissionStatusAccepted && s.CommissionRate.Valid
}
