// Package sellers reads seller onboarding outputs and maintains the cached
// seller counters owned by settlement and payouts.
package sellers

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes seller profile persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, sellerID uuid.UUID) (*models.SellerProfile, error)
	LockByID(ctx context.Context, sellerID uuid.UUID) (*models.SellerProfile, error)
	IncrementSales(ctx context.Context, sellerID uuid.UUID, sales, earningsCents int64) error
	RecordPayout(ctx context.Context, sellerID uuid.UUID, amountCents int64, at time.Time) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository binds the sellers repository to a database handle.
func NewRepository(conn *gorm.DB) Repository {
	return &repositoryImpl{db: conn}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// FindByID returns (nil, nil) when no profile exists.
func (r *repositoryImpl) FindByID(ctx context.Context, sellerID uuid.UUID) (*models.SellerProfile, error) {
	return r.find(r.db.WithContext(ctx), sellerID)
}

// LockByID loads the profile row for update; it serializes payout requests
// for a seller.
func (r *repositoryImpl) LockByID(ctx context.Context, sellerID uuid.UUID) (*models.SellerProfile, error) {
	return r.find(db.ForUpdate(r.db.WithContext(ctx)), sellerID)
}

func (r *repositoryImpl) find(q *gorm.DB, sellerID uuid.UUID) (*models.SellerProfile, error) {
	var profile models.SellerProfile
	err := q.Where("seller_id = ?", sellerID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repositoryImpl) IncrementSales(ctx context.Context, sellerID uuid.UUID, sales, earningsCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerProfile{}).
		Where("seller_id = ?", sellerID).
		UpdateColumns(map[string]any{
			"total_sales_count":    gorm.Expr("total_sales_count + ?", sales),
			"total_earnings_cents": gorm.Expr("total_earnings_cents + ?", earningsCents),
		}).Error
}

// RecordPayout updates the payout history cache after a completed payout.
func (r *repositoryImpl) RecordPayout(ctx context.Context, sellerID uuid.UUID, amountCents int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerProfile{}).
		Where("seller_id = ?", sellerID).
		UpdateColumns(map[string]any{
			"last_payout_at":        at,
			"lifetime_payout_cents": gorm.Expr("lifetime_payout_cents + ?", amountCents),
			"payout_count":          gorm.Expr("payout_count + 1"),
		}).Error
}
