package settlement

import (
	"context"
	"fmt"

	"github.com/angelmondragon/vaultmart-backend/internal/notifications"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/money"
	"github.com/angelmondragon/vaultmart-backend/pkg/outbox"
	"github.com/angelmondragon/vaultmart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Refund moves a completed order to refunded, revoking access on every item.
// Payment and order status change together in the same transaction.
func (s *Service) Refund(ctx context.Context, orderID, actorID uuid.UUID, reason string) (*models.Purchase, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ctx = s.withFields(ctx, map[string]any{"order_id": orderID.String(), "actor_id": actorID.String()})

	var order *models.Purchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if current == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		now := s.now().UTC()
		changed, err := repo.MarkRefunded(ctx, orderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund order")
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only completed orders can be refunded").
				WithDetails(map[string]any{"order_status": current.OrderStatus, "payment_status": current.PaymentStatus})
		}
		if err := repo.RevokeAccess(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke access")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{UserID: actorID, Role: string(enums.RoleAdmin)},
			Data: payloads.OrderRefundedEvent{
				OrderID:    orderID,
				BuyerID:    current.BuyerID,
				FinalCents: current.FinalCents,
				Reason:     reason,
				RefundedAt: now,
			},
			OccurredAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order refunded")
		}

		current.PaymentStatus = enums.PaymentStatusRefunded
		current.OrderStatus = enums.OrderStatusRefunded
		current.RefundedAt = &now
		for i := range current.Items {
			current.Items[i].AccessGranted = false
			current.Items[i].AccessGrantedAt = nil
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(ctx, "order refunded")
	}
	notifications.NotifyQuietly(ctx, s.notifier, s.logg, notifications.NotifyInput{
		UserID:   order.BuyerID,
		Title:    "Order refunded",
		Body:     fmt.Sprintf("Your order was refunded (%s %s). Access to its items has been removed.", money.FormatCents(order.FinalCents), order.Currency),
		Severity: enums.NotificationSeverityWarning,
		Link:     "/orders/" + order.ID.String(),
	})
	return order, nil
}
