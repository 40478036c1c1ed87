package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is the single mutable cart a buyer owns.
type Cart struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID            uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex"`
	TotalCents         int64               `gorm:"column:total_cents;not null;default:0"`
	DiscountCents      int64               `gorm:"column:discount_cents;not null;default:0"`
	FinalCents         int64               `gorm:"column:final_cents;not null;default:0"`
	PromocodeID        *uuid.UUID          `gorm:"column:promocode_id;type:uuid"`
	PromoCode          *string             `gorm:"column:promo_code"`
	DiscountPercentage decimal.NullDecimal `gorm:"column:discount_percentage;type:numeric(5,2)"`
	Items              []CartItem          `gorm:"foreignKey:CartID;references:ID"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Cart) TableName() string { return "carts" }

// ProductIDs returns item product ids in insertion order.
func (c Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// CartItem references a product; prices are always read live.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	AddedAt   time.Time `gorm:"column:added_at;not null"`
}

func (CartItem) TableName() string { return "cart_items" }
