package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/vaultmart-backend/pkg/db/types"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
)

// PromotionSnapshot freezes the promotion applied to an order.
type PromotionSnapshot struct {
	PromocodeID   uuid.UUID          `json:"promocode_id"`
	Code          string             `json:"code"`
	DiscountType  enums.DiscountType `json:"discount_type"`
	DiscountValue string             `json:"discount_value"`
	DiscountCents int64              `json:"discount_cents"`
}

// Purchase is a settled (or settling) order. PaymentReference is unique and is
// the idempotency key for settlement.
type Purchase struct {
	ID               uuid.UUID                        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BuyerID          uuid.UUID                        `gorm:"column:buyer_id;type:uuid;not null" json:"buyer_id"`
	TotalCents       int64                            `gorm:"column:total_cents;not null" json:"total_cents"`
	DiscountCents    int64                            `gorm:"column:discount_cents;not null" json:"discount_cents"`
	FinalCents       int64                            `gorm:"column:final_cents;not null" json:"final_cents"`
	Currency         string                           `gorm:"column:currency;not null" json:"currency"`
	PaymentStatus    enums.PaymentStatus              `gorm:"column:payment_status;not null" json:"payment_status"`
	OrderStatus      enums.OrderStatus                `gorm:"column:order_status;not null" json:"order_status"`
	PaymentMethod    enums.PaymentMethod              `gorm:"column:payment_method;not null" json:"payment_method"`
	PaymentReference string                           `gorm:"column:payment_reference;not null;uniqueIndex" json:"payment_reference"`
	TransactionID    *string                          `gorm:"column:transaction_id" json:"transaction_id,omitempty"`
	PromocodeID      *uuid.UUID                       `gorm:"column:promocode_id;type:uuid" json:"promocode_id,omitempty"`
	Promotion        dbtypes.JSON[*PromotionSnapshot] `gorm:"column:promotion;type:jsonb" json:"promotion"`
	Items            []PurchaseItem                   `gorm:"foreignKey:PurchaseID;references:ID" json:"items"`
	PurchasedAt      time.Time                        `gorm:"column:purchased_at;not null" json:"purchased_at"`
	CompletedAt      *time.Time                       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	RefundedAt       *time.Time                       `gorm:"column:refunded_at" json:"refunded_at,omitempty"`
	CreatedAt        time.Time                        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Purchase) TableName() string { return "purchases" }

func (p Purchase) IsCompleted() bool {
	return p.PaymentStatus == enums.PaymentStatusCompleted && p.OrderStatus == enums.OrderStatusCompleted
}

// SellerIDs returns the distinct sellers attributed on the order in line order.
func (p Purchase) SellerIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(p.Items))
	out := make([]uuid.UUID, 0, len(p.Items))
	for _, item := range p.Items {
		if _, ok := seen[item.SellerID]; ok {
			continue
		}
		seen[item.SellerID] = struct{}{}
		out = append(out, item.SellerID)
	}
	return out
}

// PurchaseItem is an immutable priced line on an order.
type PurchaseItem struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PurchaseID      uuid.UUID  `gorm:"column:purchase_id;type:uuid;not null" json:"purchase_id"`
	Position        int        `gorm:"column:position;not null" json:"position"`
	ProductID       uuid.UUID  `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	SellerID        uuid.UUID  `gorm:"column:seller_id;type:uuid;not null" json:"seller_id"`
	Title           string     `gorm:"column:title;not null" json:"title"`
	UnitPriceCents  int64      `gorm:"column:unit_price_cents;not null" json:"unit_price_cents"`
	AccessGranted   bool       `gorm:"column:access_granted;not null;default:false" json:"access_granted"`
	AccessGrantedAt *time.Time `gorm:"column:access_granted_at" json:"access_granted_at,omitempty"`
}

func (PurchaseItem) TableName() string { return "purchase_items" }
