package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
)

// Product is the slice of the catalog record the marketplace core reads.
// Only SalesCount is written here.
type Product struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID   uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	Title      string              `gorm:"column:title;not null"`
	PriceCents int64               `gorm:"column:price_cents;not null"`
	Status     enums.ProductStatus `gorm:"column:status;not null"`
	Category   string              `gorm:"column:category"`
	Industry   string              `gorm:"column:industry"`
	SalesCount int64               `gorm:"column:sales_count;not null;default:0"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

func (p Product) IsPublished() bool {
	return p.Status == enums.ProductStatusPublished
}
