package earnings

import (
	"context"
	"time"

	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleLine is one completed-order line attributed to a seller.
type SaleLine struct {
	PurchaseID     uuid.UUID
	UnitPriceCents int64
}

// Repository reads the order and payout facts earnings are derived from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CompletedSales(ctx context.Context, sellerID uuid.UUID, from, to *time.Time) ([]SaleLine, error)
	PaidOutCents(ctx context.Context, sellerID uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// CompletedSales lists the seller's lines on completed orders, optionally
// bounded by completion time (inclusive on both ends).
func (r *repositoryImpl) CompletedSales(ctx context.Context, sellerID uuid.UUID, from, to *time.Time) ([]SaleLine, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PurchaseItem{}).
		Select("purchase_items.purchase_id AS purchase_id, purchase_items.unit_price_cents AS unit_price_cents").
		Joins("JOIN purchases ON purchases.id = purchase_items.purchase_id").
		Where("purchase_items.seller_id = ?", sellerID).
		Where("purchases.payment_status = ? AND purchases.order_status = ?", enums.PaymentStatusCompleted, enums.OrderStatusCompleted)
	if from != nil {
		query = query.Where("purchases.completed_at >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("purchases.completed_at <= ?", to.UTC())
	}

	var lines []SaleLine
	if err := query.Order("purchases.completed_at ASC, purchase_items.position ASC").Scan(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// PaidOutCents sums payouts that already claim earnings (approved,
// processing or completed).
func (r *repositoryImpl) PaidOutCents(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("seller_id = ? AND status IN ?", sellerID, enums.PaidOutPayoutStatuses()).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
