package payouts

import (
	"context"
	"time"

	"github.com/angelmondragon/vaultmart-backend/internal/earnings"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ListFilters narrows payout listings; zero values are ignored.
type ListFilters struct {
	Status   *enums.PayoutStatus
	SellerID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

type PayoutList struct {
	Payouts    []models.Payout `json:"payouts"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// PayoutHistory is the cached payout summary kept on the seller profile. It
// is display data only and never feeds the earnings computation.
type PayoutHistory struct {
	LastPayoutAt        *time.Time `json:"last_payout_at,omitempty"`
	LifetimePayoutCents int64      `json:"lifetime_payout_cents"`
	PayoutCount         int64      `json:"payout_count"`
}

type Dashboard struct {
	Earnings      earnings.Snapshot `json:"earnings"`
	PendingPayout *models.Payout    `json:"pending_payout,omitempty"`
	RecentPayouts []models.Payout   `json:"recent_payouts"`
	History       PayoutHistory     `json:"payout_history"`
}

func (s *Service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*PayoutList, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payout status").
			WithDetails(map[string]any{"status": *filters.Status})
	}
	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, listPayoutsParams{
		Status:   filters.Status,
		SellerID: filters.SellerID,
		From:     filters.From,
		To:       filters.To,
		Limit:    params.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	list := &PayoutList{Payouts: rows}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// Get returns the payout. A non-nil sellerID restricts the read to that
// seller's payouts.
func (s *Service) Get(ctx context.Context, payoutID uuid.UUID, sellerID *uuid.UUID) (*models.Payout, error) {
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	if payout == nil || (sellerID != nil && payout.SellerID != *sellerID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	return payout, nil
}

// SellerDashboard combines the live earnings snapshot with the seller's
// payout activity.
func (s *Service) SellerDashboard(ctx context.Context, sellerID uuid.UUID) (*Dashboard, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	profile, err := s.sellers.FindByID(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller profile")
	}
	if profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	snap, err := s.earnings.ComputeEarnings(ctx, sellerID, nil, nil)
	if err != nil {
		return nil, err
	}
	open, err := s.repo.FindOpenBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open payout")
	}
	recent, err := s.repo.ListRecentBySeller(ctx, sellerID, recentPayoutsOnDashboard)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recent payouts")
	}
	return &Dashboard{
		Earnings:      snap,
		PendingPayout: open,
		RecentPayouts: recent,
		History: PayoutHistory{
			LastPayoutAt:        profile.LastPayoutAt,
			LifetimePayoutCents: profile.LifetimePayoutCents,
			PayoutCount:         profile.PayoutCount,
		},
	}, nil
}
