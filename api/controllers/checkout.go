package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/vaultmart-backend/api/middleware"
	"github.com/angelmondragon/vaultmart-backend/api/responses"
	"github.com/angelmondragon/vaultmart-backend/api/validators"
	"github.com/angelmondragon/vaultmart-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
)

// CheckoutService starts and confirms card payments for the buyer's cart.
type CheckoutService interface {
	CreateIntent(ctx context.Context, buyerID uuid.UUID) (*checkout.IntentResult, error)
	Confirm(ctx context.Context, buyerID uuid.UUID, processorIntentID string) (*checkout.ConfirmResult, error)
}

type checkoutConfirmRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required,max=255"`
}

// CheckoutIntent opens a payment intent for the cart. Free carts come back
// settled with a 201 and the order.
func CheckoutIntent(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		buyerID, err := middleware.RequireActorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateIntent(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.Free {
			responses.WriteSuccessStatus(w, http.StatusCreated, result)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CheckoutConfirm settles a succeeded intent on the synchronous path. An
// intent the processor has not resolved yet answers 202 so the client polls.
func CheckoutConfirm(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		buyerID, err := middleware.RequireActorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutConfirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Confirm(r.Context(), buyerID, payload.PaymentIntentID)
		if err != nil {
			if checkout.IsPaymentPending(err) {
				details, _ := pkgerrors.As(err).Details().(map[string]any)
				responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
					"status":  details["status"],
					"pending": true,
				})
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
