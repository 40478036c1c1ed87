// Package earnings derives a seller's available balance from completed
// orders, platform fees and payouts already claimed. It never writes.
package earnings

import (
	"context"
	"time"

	"github.com/angelmondragon/vaultmart-backend/internal/platformconfig"
	"github.com/angelmondragon/vaultmart-backend/internal/sellers"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const ReasonCommissionNotAccepted = "commission_not_accepted"

// Snapshot is a point-in-time earnings computation. It is always recomputed
// and never persisted.
type Snapshot struct {
	SellerID              uuid.UUID       `json:"seller_id"`
	From                  *time.Time      `json:"from,omitempty"`
	To                    *time.Time      `json:"to,omitempty"`
	TotalSalesCents       int64           `json:"total_sales_cents"`
	CommissionRate        decimal.Decimal `json:"commission_rate"`
	GrossCents            int64           `json:"gross_earnings_cents"`
	PlatformFeePercentage decimal.Decimal `json:"platform_fee_percentage"`
	PlatformFeeCents      int64           `json:"platform_fee_cents"`
	ProcessingFeeCents    int64           `json:"processing_fee_cents"`
	NetCents              int64           `json:"net_earnings_cents"`
	PaidOutCents          int64           `json:"total_paid_out_cents"`
	AvailableCents        int64           `json:"available_for_payout_cents"`
	MinimumPayoutCents    int64           `json:"minimum_payout_cents"`
	MaximumPayoutCents    int64           `json:"maximum_payout_cents"`
	Eligible              bool            `json:"is_eligible"`
	OnHold                bool            `json:"is_on_hold"`
	HoldUntil             *time.Time      `json:"hold_until,omitempty"`
	Currency              string          `json:"currency"`
	OrderIDs              []uuid.UUID     `json:"order_ids"`
	ComputedAt            time.Time       `json:"computed_at"`
}

// CanRequestPayout reports whether a payout request would pass the earnings
// guards.
func (s Snapshot) CanRequestPayout() bool {
	return s.Eligible && !s.OnHold
}

type CalculatorParams struct {
	Repository Repository
	Sellers    sellers.Repository
	Config     platformconfig.Provider
}

type Calculator struct {
	repo    Repository
	sellers sellers.Repository
	config  platformconfig.Provider
	now     func() time.Time
}

func NewCalculator(params CalculatorParams) (*Calculator, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "earnings repository required")
	}
	if params.Sellers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sellers repository required")
	}
	if params.Config == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "platform config provider required")
	}
	return &Calculator{
		repo:    params.Repository,
		sellers: params.Sellers,
		config:  params.Config,
		now:     time.Now,
	}, nil
}

// ComputeEarnings returns the seller's earnings for the optional completion
// window.
func (c *Calculator) ComputeEarnings(ctx context.Context, sellerID uuid.UUID, from, to *time.Time) (Snapshot, error) {
	return c.compute(ctx, c.repo, c.sellers, sellerID, from, to)
}

// ComputeEarningsTx runs the same computation on the caller's transaction so
// the payout request guard sees rows it has locked.
func (c *Calculator) ComputeEarningsTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (Snapshot, error) {
	return c.compute(ctx, c.repo.WithTx(tx), c.sellers.WithTx(tx), sellerID, nil, nil)
}

func (c *Calculator) compute(ctx context.Context, repo Repository, sellerRepo sellers.Repository, sellerID uuid.UUID, from, to *time.Time) (Snapshot, error) {
	if sellerID == uuid.Nil {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if from != nil && to != nil && from.After(*to) {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to").
			WithDetails(map[string]any{"from": from, "to": to})
	}

	profile, err := sellerRepo.FindByID(ctx, sellerID)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller profile")
	}
	if profile == nil {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	if !profile.HasAcceptedCommission() {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeIneligible, "seller has no accepted commission rate").
			WithDetails(map[string]any{"reason": ReasonCommissionNotAccepted, "commission_status": profile.CommissionStatus})
	}

	cfg, err := c.config.GetActive(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	lines, err := repo.CompletedSales(ctx, sellerID, from, to)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load completed sales")
	}
	paidOut, err := repo.PaidOutCents(ctx, sellerID)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load paid out total")
	}

	now := c.now().UTC()
	snap := Snapshot{
		SellerID:              sellerID,
		From:                  from,
		To:                    to,
		CommissionRate:        profile.CommissionRate.Decimal,
		PlatformFeePercentage: cfg.PlatformFeePercentage,
		ProcessingFeeCents:    cfg.ProcessingFeeCents,
		PaidOutCents:          paidOut,
		MinimumPayoutCents:    cfg.MinimumPayoutCents,
		MaximumPayoutCents:    cfg.MaximumPayoutCents,
		Currency:              cfg.Currency,
		OrderIDs:              []uuid.UUID{},
		ComputedAt:            now,
	}

	seen := make(map[uuid.UUID]struct{})
	for _, line := range lines {
		snap.TotalSalesCents += line.UnitPriceCents
		if _, ok := seen[line.PurchaseID]; !ok {
			seen[line.PurchaseID] = struct{}{}
			snap.OrderIDs = append(snap.OrderIDs, line.PurchaseID)
		}
	}

	snap.GrossCents = money.PercentOf(snap.TotalSalesCents, snap.CommissionRate)
	snap.PlatformFeeCents = money.PercentOf(snap.GrossCents, cfg.PlatformFeePercentage)
	snap.NetCents = money.NonNegative(snap.GrossCents - snap.PlatformFeeCents - cfg.ProcessingFeeCents)
	snap.AvailableCents = money.NonNegative(snap.NetCents - paidOut)
	snap.Eligible = snap.AvailableCents >= cfg.MinimumPayoutCents
	snap.OnHold, snap.HoldUntil = holdStatus(*profile, cfg, now)
	return snap, nil
}

// holdStatus treats a seller without an approval as held indefinitely.
func holdStatus(profile models.SellerProfile, cfg models.PlatformConfig, now time.Time) (bool, *time.Time) {
	if profile.Status != enums.SellerStatusApproved || profile.ApprovedAt == nil {
		return true, nil
	}
	until := profile.ApprovedAt.UTC().AddDate(0, 0, cfg.HoldPeriodDays)
	return now.Before(until), &until
}
