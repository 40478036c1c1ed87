package payouts

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/vaultmart-backend/api/middleware"
	"github.com/angelmondragon/vaultmart-backend/api/responses"
	"github.com/angelmondragon/vaultmart-backend/api/validators"
	payoutsvc "github.com/angelmondragon/vaultmart-backend/internal/payouts"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
)

type approveRequest struct {
	Notes *string `json:"notes" validate:"omitempty,max=1000"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type completeRequest struct {
	TransactionID *string `json:"transaction_id" validate:"omitempty,max=255"`
}

type bulkApproveRequest struct {
	PayoutIDs []uuid.UUID `json:"payout_ids" validate:"required,min=1,max=100"`
}

// actionFunc runs one admin transition after the request body is decoded.
type actionFunc func(r *http.Request, payoutID, adminID uuid.UUID) (*models.Payout, error)

func adminAction(svc Service, logg *logger.Logger, run actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		adminID, err := middleware.RequireActorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutID, err := validators.ParseURLParamUUID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := run(r, payoutID, adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

// AdminList lists payouts across sellers with optional filters.
func AdminList(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		status, err := parseStatus(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sellerID, err := validators.ParseQueryUUID(r, "seller_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, to, err := parseWindow(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), payoutsvc.ListFilters{
			Status:   status,
			SellerID: sellerID,
			From:     from,
			To:       to,
		}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminGet returns one payout.
func AdminGet(svc Service, logg *logger.Logger) http.HandlerFunc {
	return adminAction(svc, logg, func(r *http.Request, payoutID, _ uuid.UUID) (*models.Payout, error) {
		return svc.Get(r.Context(), payoutID, nil)
	})
}

func AdminApprove(svc Service, logg *logger.Logger) http.HandlerFunc {
	return adminAction(svc, logg, func(r *http.Request, payoutID, adminID uuid.UUID) (*models.Payout, error) {
		var payload approveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.Approve(r.Context(), payoutID, adminID, optionalText(payload.Notes, 1000))
	})
}

// AdminReject cancels a payout; a reason is mandatory.
func AdminReject(svc Service, logg *logger.Logger) http.HandlerFunc {
	return adminAction(svc, logg, func(r *http.Request, payoutID, adminID uuid.UUID) (*models.Payout, error) {
		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.Reject(r.Context(), payoutID, adminID, validators.SanitizeString(payload.Reason, 1000))
	})
}

func AdminHold(svc Service, logg *logger.Logger) http.HandlerFunc {
	return adminAction(svc, logg, func(r *http.Request, payoutID, adminID uuid.UUID) (*models.Payout, error) {
		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.Hold(r.Context(), payoutID, adminID, validators.SanitizeString(payload.Reason, 1000))
	})
}

func AdminRelease(svc Service, logg *logger.Logger) http.HandlerFunc {
	return adminAction(svc, logg, func(r *http.Request, payoutID, adminID uuid.UUID) (*models.Payout, error) {
		return svc.Release(r.Context(), payoutID, adminID)
	})
}

func AdminStartProcessing(svc Service, logg *logger.Logger) http.HandlerFunc {
	return adminAction(svc, logg, func(r *http.Request, payoutID, adminID uuid.UUID) (*models.Payout, error) {
		return svc.StartProcessing(r.Context(), payoutID, adminID)
	})
}

func AdminComplete(svc Service, logg *logger.Logger) http.HandlerFunc {
	return adminAction(svc, logg, func(r *http.Request, payoutID, adminID uuid.UUID) (*models.Payout, error) {
		var payload completeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.Complete(r.Context(), payoutID, adminID, optionalText(payload.TransactionID, 255))
	})
}

// AdminBulkApprove approves each payout independently and reports per-item results.
func AdminBulkApprove(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}
		adminID, err := middleware.RequireActorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload bulkApproveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results, err := svc.BulkApprove(r.Context(), adminID, payload.PayoutIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		approved := 0
		for _, res := range results {
			if res.Success {
				approved++
			}
		}
		responses.WriteSuccess(w, map[string]any{
			"results":  results,
			"approved": approved,
			"failed":   len(results) - approved,
		})
	}
}

// AdminSellerEarnings computes any seller's earnings snapshot.
func AdminSellerEarnings(svc EarningsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "earnings service unavailable"))
			return
		}
		sellerID, err := validators.ParseURLParamUUID(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, to, err := parseWindow(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.ComputeEarnings(r.Context(), sellerID, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}
