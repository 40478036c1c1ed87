package settlement

import (
	"context"

	"github.com/angelmondragon/vaultmart-backend/internal/notifications"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/outbox"
	"github.com/angelmondragon/vaultmart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HandlePaymentFailure records a failed or canceled payment. No order is
// created and the buyer's cart is left untouched. Repeated calls for the same
// reference are no-ops.
func (s *Service) HandlePaymentFailure(ctx context.Context, input FailureInput) error {
	if input.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	status := input.Status
	if status == "" {
		status = enums.CheckoutIntentStatusFailed
	}
	if status != enums.CheckoutIntentStatusFailed && status != enums.CheckoutIntentStatusCanceled {
		return pkgerrors.New(pkgerrors.CodeValidation, "failure status must be failed or canceled")
	}
	ctx = s.withFields(ctx, map[string]any{
		"payment_reference": input.Reference,
		"buyer_id":          input.BuyerID.String(),
		"settle_source":     input.Source,
	})

	var intent *models.CheckoutIntent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		intent, err = s.intents.MarkFailed(ctx, tx, input.Reference, status, input.Reason)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark checkout intent failed")
		}
		if intent == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateCheckoutIntent,
			AggregateID:   intent.ID,
			Data: payloads.PaymentFailedEvent{
				CheckoutIntentID:  intent.ID,
				BuyerID:           intent.BuyerID,
				ProcessorIntentID: input.Reference,
				Status:            status,
				Reason:            input.Reason,
			},
		})
	})
	if err != nil {
		return err
	}
	if intent == nil {
		if s.logg != nil {
			s.logg.Info(ctx, "payment failure already recorded")
		}
		return nil
	}

	s.metrics.IncFailed("payment_" + string(status))
	if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "failure_reason", input.Reason), "payment failed")
	}
	if buyerID := intent.BuyerID; buyerID != uuid.Nil {
		body := "Your payment could not be completed. Your cart has been kept so you can try again."
		if input.Reason != "" {
			body = input.Reason + ". Your cart has been kept so you can try again."
		}
		notifications.NotifyQuietly(ctx, s.notifier, s.logg, notifications.NotifyInput{
			UserID:   buyerID,
			Title:    "Payment failed",
			Body:     body,
			Severity: enums.NotificationSeverityError,
			Link:     "/cart",
		})
	}
	return nil
}
