package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/angelmondragon/vaultmart-backend/internal/checkout"
	"github.com/angelmondragon/vaultmart-backend/internal/settlement"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/vaultmart-backend/pkg/stripe"
	"github.com/stripe/stripe-go/v84"
)

type intentProcessor interface {
	ProcessIntent(ctx context.Context, intent *pkgstripe.Intent, source string) (*checkout.ConfirmResult, error)
}

type ServiceParams struct {
	Checkout intentProcessor
	Logger   *logger.Logger
}

// Service applies payment intent events to checkout.
type Service struct {
	checkout intentProcessor
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	return &Service{checkout: params.Checkout, logg: params.Logger}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	var forced pkgstripe.IntentStatus
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
	case stripe.EventTypePaymentIntentPaymentFailed:
		forced = pkgstripe.IntentStatusFailed
	case stripe.EventTypePaymentIntentCanceled:
		forced = pkgstripe.IntentStatusCanceled
	default:
		return nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	intent := pkgstripe.IntentFromStripe(&pi)
	if intent == nil || intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	if forced != "" {
		intent.Status = forced
	}

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithFields(ctx, map[string]any{
			"event_id":          event.ID,
			"event_type":        string(event.Type),
			"payment_reference": intent.ID,
		})
	}

	result, err := s.checkout.ProcessIntent(logCtx, intent, settlement.SourceWebhook)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			if s.logg != nil {
				s.logg.Warn(logCtx, "payment intent has no checkout record; ignoring")
			}
			return nil
		}
		if checkout.IsPermanent(err) {
			// Redelivery cannot fix it; the intent is parked for manual review.
			if s.logg != nil {
				s.logg.Error(logCtx, "payment intent needs manual review", err)
			}
			return nil
		}
		return err
	}
	if s.logg != nil && result != nil && result.Order != nil {
		s.logg.Info(s.logg.WithField(logCtx, "order_id", result.Order.ID.String()), "payment intent event applied")
	}
	return nil
}
