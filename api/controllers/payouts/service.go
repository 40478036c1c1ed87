package payouts

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/vaultmart-backend/api/validators"
	"github.com/angelmondragon/vaultmart-backend/internal/earnings"
	payoutsvc "github.com/angelmondragon/vaultmart-backend/internal/payouts"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/pagination"
)

// Service is the payout lifecycle surface used by seller and admin routes.
type Service interface {
	Request(ctx context.Context, input payoutsvc.RequestInput) (*models.Payout, error)
	List(ctx context.Context, filters payoutsvc.ListFilters, params pagination.Params) (*payoutsvc.PayoutList, error)
	Get(ctx context.Context, payoutID uuid.UUID, sellerID *uuid.UUID) (*models.Payout, error)
	SellerDashboard(ctx context.Context, sellerID uuid.UUID) (*payoutsvc.Dashboard, error)
	Approve(ctx context.Context, payoutID, adminID uuid.UUID, notes *string) (*models.Payout, error)
	Reject(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*models.Payout, error)
	Hold(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*models.Payout, error)
	Release(ctx context.Context, payoutID, adminID uuid.UUID) (*models.Payout, error)
	StartProcessing(ctx context.Context, payoutID, adminID uuid.UUID) (*models.Payout, error)
	Complete(ctx context.Context, payoutID, adminID uuid.UUID, transactionID *string) (*models.Payout, error)
	BulkApprove(ctx context.Context, adminID uuid.UUID, payoutIDs []uuid.UUID) ([]payoutsvc.BulkResult, error)
}

// EarningsService computes seller earnings snapshots.
type EarningsService interface {
	ComputeEarnings(ctx context.Context, sellerID uuid.UUID, from, to *time.Time) (earnings.Snapshot, error)
}

func parseWindow(r *http.Request) (*time.Time, *time.Time, error) {
	from, err := validators.ParseQueryTime(r, "from", false)
	if err != nil {
		return nil, nil, err
	}
	to, err := validators.ParseQueryTime(r, "to", true)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseStatus(r *http.Request) (*enums.PayoutStatus, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParsePayoutStatus(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payout status").WithDetails(map[string]any{"field": "status"})
	}
	return &status, nil
}

func optionalText(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	cleaned := validators.SanitizeString(*value, maxLen)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
