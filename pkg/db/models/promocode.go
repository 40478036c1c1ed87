package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/vaultmart-backend/pkg/db/types"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
)

// Promocode is a discount code owned by the platform or a seller.
type Promocode struct {
	ID                uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	Code              string                   `gorm:"column:code;not null"`
	OwnerType         enums.PromotionOwnerType `gorm:"column:owner_type;not null"`
	OwnerSellerID     *uuid.UUID               `gorm:"column:owner_seller_id;type:uuid"`
	DiscountType      enums.DiscountType       `gorm:"column:discount_type;not null"`
	DiscountValue     decimal.Decimal          `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MaxDiscountCents  *int64                   `gorm:"column:max_discount_cents"`
	MinOrderCents     int64                    `gorm:"column:min_order_cents;not null;default:0"`
	IsGlobal          bool                     `gorm:"column:is_global;not null;default:false"`
	ProductIDs        dbtypes.UUIDArray        `gorm:"column:product_ids;type:uuid[]"`
	Categories        pq.StringArray           `gorm:"column:categories;type:text[]"`
	Industries        pq.StringArray           `gorm:"column:industries;type:text[]"`
	ValidFrom         *time.Time               `gorm:"column:valid_from"`
	ValidUntil        *time.Time               `gorm:"column:valid_until"`
	UsageLimit        *int64                   `gorm:"column:usage_limit"`
	UsageLimitPerUser *int64                   `gorm:"column:usage_limit_per_user"`
	CurrentUsageCount int64                    `gorm:"column:current_usage_count;not null;default:0"`
	IsActive          bool                     `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (Promocode) TableName() string { return "promocodes" }

// NormalizeCode returns the canonical stored form of a promotion code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromocodeUsage is one append-only ledger entry per order that redeemed a code.
type PromocodeUsage struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PromocodeID   uuid.UUID `gorm:"column:promocode_id;type:uuid;not null"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	DiscountCents int64     `gorm:"column:discount_cents;not null"`
	UsedAt        time.Time `gorm:"column:used_at;not null"`
}

func (PromocodeUsage) TableName() string { return "promocode_usages" }
