package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/vaultmart-backend/pkg/db/types"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
)

// CartSnapshot freezes what the buyer was shown when payment was initiated.
type CartSnapshot struct {
	ProductIDs    []uuid.UUID `json:"product_ids"`
	PromoCode     *string     `json:"promo_code,omitempty"`
	TotalCents    int64       `json:"total_cents"`
	DiscountCents int64       `json:"discount_cents"`
	FinalCents    int64       `json:"final_cents"`
}

// CheckoutIntent links a processor payment intent to the buyer and cart snapshot.
type CheckoutIntent struct {
	ID                uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID           uuid.UUID                  `gorm:"column:buyer_id;type:uuid;not null"`
	ProcessorIntentID string                     `gorm:"column:processor_intent_id;not null;uniqueIndex"`
	AmountCents       int64                      `gorm:"column:amount_cents;not null"`
	Currency          string                     `gorm:"column:currency;not null"`
	Snapshot          dbtypes.JSON[CartSnapshot] `gorm:"column:snapshot;type:jsonb;not null"`
	Status            enums.CheckoutIntentStatus `gorm:"column:status;not null"`
	FailureReason     *string                    `gorm:"column:failure_reason"`
	OrderID           *uuid.UUID                 `gorm:"column:order_id;type:uuid"`
	LastCheckedAt     *time.Time                 `gorm:"column:last_checked_at"`
	ReviewReason      *string                    `gorm:"column:review_reason"`
	CreatedAt         time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (CheckoutIntent) TableName() string { return "checkout_intents" }
