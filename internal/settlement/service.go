package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/vaultmart-backend/internal/catalog"
	"github.com/angelmondragon/vaultmart-backend/internal/notifications"
	"github.com/angelmondragon/vaultmart-backend/internal/promotions"
	"github.com/angelmondragon/vaultmart-backend/internal/sellers"
	"github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/vaultmart-backend/pkg/db/types"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
	"github.com/angelmondragon/vaultmart-backend/pkg/metrics"
	"github.com/angelmondragon/vaultmart-backend/pkg/money"
	"github.com/angelmondragon/vaultmart-backend/pkg/outbox"
	"github.com/angelmondragon/vaultmart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartClearer interface {
	Clear(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID) error
}

// IntentRecorder tracks the processor-side checkout intent for a payment reference.
type IntentRecorder interface {
	MarkSucceeded(ctx context.Context, tx *gorm.DB, processorIntentID string, orderID uuid.UUID) error
	// MarkFailed returns the intent it moved out of pending, or nil when the
	// intent was already resolved.
	MarkFailed(ctx context.Context, tx *gorm.DB, processorIntentID string, status enums.CheckoutIntentStatus, reason string) (*models.CheckoutIntent, error)
}

var errDuplicateReference = errors.New("payment reference already settled")

type ServiceParams struct {
	Repository        Repository
	TransactionRunner txRunner
	Catalog           catalog.Repository
	Sellers           sellers.Repository
	Promotions        *promotions.Evaluator
	Cart              cartClearer
	Intents           IntentRecorder
	Outbox            outbox.Emitter
	Notifier          notifications.Sender
	Metrics           *metrics.SettlementMetrics
	Logger            *logger.Logger
	Currency          string
}

// Service converts payment confirmations into completed orders.
type Service struct {
	repo       Repository
	tx         txRunner
	catalog    catalog.Repository
	sellers    sellers.Repository
	promotions *promotions.Evaluator
	cart       cartClearer
	intents    IntentRecorder
	outbox     outbox.Emitter
	notifier   notifications.Sender
	metrics    *metrics.SettlementMetrics
	logg       *logger.Logger
	currency   string
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repository required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository required")
	}
	if params.Sellers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "seller repository required")
	}
	if params.Promotions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "promotion evaluator required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service required")
	}
	if params.Intents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout intent recorder required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		repo:       params.Repository,
		tx:         params.TransactionRunner,
		catalog:    params.Catalog,
		sellers:    params.Sellers,
		promotions: params.Promotions,
		cart:       params.Cart,
		intents:    params.Intents,
		outbox:     params.Outbox,
		notifier:   params.Notifier,
		metrics:    params.Metrics,
		logg:       params.Logger,
		currency:   currency,
		now:        time.Now,
	}, nil
}

// Settle turns a payment confirmation into a completed order. Calls are
// idempotent on the payment reference: a second call for the same reference
// returns the existing order with AlreadySettled set and performs no writes.
func (s *Service) Settle(ctx context.Context, input SettleInput) (*Result, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	payment := input.Payment
	if payment.Method == "" {
		payment.Method = enums.PaymentMethodStripe
	}
	if !payment.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if payment.Reference == "" {
		if payment.Method != enums.PaymentMethodFree {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
		}
		payment.Reference = freeReferencePrefix + uuid.NewString()
	}
	if payment.Currency == "" {
		payment.Currency = s.currency
	}

	ctx = s.withFields(ctx, map[string]any{
		"payment_reference": payment.Reference,
		"buyer_id":          input.BuyerID.String(),
		"settle_source":     payment.Source,
	})

	existing, err := s.repo.FindByReference(ctx, payment.Reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by payment reference")
	}
	if existing != nil {
		return s.alreadySettled(ctx, existing, payment.Source), nil
	}

	var (
		order     *models.Purchase
		promoUsed *promotions.Evaluation
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		built, eval, err := s.buildOrder(ctx, tx, input.BuyerID, input.Snapshot, payment)
		if err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, built); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errDuplicateReference
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		if err := s.completeOrder(ctx, tx, built, eval); err != nil {
			return err
		}
		order, promoUsed = built, eval
		return nil
	})
	if errors.Is(err, errDuplicateReference) {
		winner, findErr := s.repo.FindByReference(ctx, payment.Reference)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload order after duplicate reference")
		}
		if winner == nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment reference settled concurrently; retry")
		}
		return s.alreadySettled(ctx, winner, payment.Source), nil
	}
	if err != nil {
		s.metrics.IncFailed(failureLabel(err))
		return nil, err
	}

	s.metrics.IncCompleted(string(order.PaymentMethod))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":    order.ID.String(),
			"final_cents": order.FinalCents,
			"promo_used":  promoUsed != nil,
		})
		s.logg.Info(logCtx, "order settled")
	}
	s.notifyCompleted(ctx, order)
	return &Result{Order: order}, nil
}

func (s *Service) alreadySettled(ctx context.Context, order *models.Purchase, source string) *Result {
	s.metrics.IncDuplicate(source)
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "payment already settled")
	}
	return &Result{Order: order, AlreadySettled: true}
}

// buildOrder prices the snapshot against live catalog data. Items that are no
// longer published are dropped; a promotion that no longer qualifies is
// dropped and the order proceeds at full price.
func (s *Service) buildOrder(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID, snapshot models.CartSnapshot, payment PaymentConfirmation) (*models.Purchase, *promotions.Evaluation, error) {
	products, err := s.catalog.WithTx(tx).FindByIDs(ctx, snapshot.ProductIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order products")
	}

	seen := make(map[uuid.UUID]struct{}, len(snapshot.ProductIDs))
	var (
		items []models.PurchaseItem
		lines []promotions.Line
	)
	for _, id := range snapshot.ProductIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		product, ok := products[id]
		if !ok || !product.IsPublished() {
			continue
		}
		items = append(items, models.PurchaseItem{
			ProductID:      product.ID,
			SellerID:       product.SellerID,
			Title:          product.Title,
			UnitPriceCents: product.PriceCents,
		})
		lines = append(lines, promotions.Line{
			ProductID:  product.ID,
			SellerID:   product.SellerID,
			PriceCents: product.PriceCents,
			Category:   product.Category,
			Industry:   product.Industry,
		})
	}
	if len(items) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "no valid items to settle").
			WithDetails(map[string]any{"reason": ReasonNoValidItems})
	}

	cart := promotions.Cart{Lines: lines}
	total := cart.TotalCents()

	var eval *promotions.Evaluation
	if snapshot.PromoCode != nil && *snapshot.PromoCode != "" {
		eval, err = s.promotions.EvaluateLocked(ctx, tx, *snapshot.PromoCode, cart, buyerID)
		if err != nil {
			if !isRejection(err) {
				return nil, nil, err
			}
			if s.logg != nil {
				logCtx := s.logg.WithField(ctx, "promo_code", *snapshot.PromoCode)
				s.logg.Warn(logCtx, fmt.Sprintf("promotion dropped at settlement: %v", err))
			}
			eval = nil
		}
	}

	var discount int64
	if eval != nil {
		discount = eval.DiscountCents
	}
	final := money.NonNegative(total - discount)
	if payment.Method == enums.PaymentMethodFree && final != 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeConflict, "cart total changed; payment is now required").
			WithDetails(map[string]any{"final_cents": final})
	}
	if payment.Method != enums.PaymentMethodFree && payment.AmountCents != 0 && payment.AmountCents != final && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"paid_cents": payment.AmountCents, "final_cents": final})
		s.logg.Warn(logCtx, "settled total differs from processor amount")
	}

	purchase := &models.Purchase{
		ID:               uuid.New(),
		BuyerID:          buyerID,
		TotalCents:       total,
		DiscountCents:    discount,
		FinalCents:       final,
		Currency:         payment.Currency,
		PaymentStatus:    enums.PaymentStatusPending,
		OrderStatus:      enums.OrderStatusPending,
		PaymentMethod:    payment.Method,
		PaymentReference: payment.Reference,
		TransactionID:    payment.TransactionID,
		Items:            items,
		PurchasedAt:      s.now().UTC(),
	}
	if eval != nil {
		purchase.PromocodeID = &eval.Promotion.ID
		purchase.Promotion = dbtypes.NewJSON(eval.Snapshot())
	}
	return purchase, eval, nil
}

// completeOrder applies every completion side effect inside tx. The status
// flip is the last write, and it is a no-op for an order already completed.
func (s *Service) completeOrder(ctx context.Context, tx *gorm.DB, order *models.Purchase, eval *promotions.Evaluation) error {
	if order.IsCompleted() {
		return nil
	}
	now := s.now().UTC()
	repo := s.repo.WithTx(tx)

	if err := repo.GrantAccess(ctx, order.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant access")
	}

	products := s.catalog.WithTx(tx)
	for _, item := range order.Items {
		if err := products.IncrementSalesCount(ctx, item.ProductID, 1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment product sales")
		}
	}

	if err := s.attributeSellers(ctx, tx, order); err != nil {
		return err
	}

	if eval != nil {
		if err := s.promotions.RecordUsage(ctx, tx, promotions.UsageInput{
			PromocodeID:   eval.Promotion.ID,
			BuyerID:       order.BuyerID,
			OrderID:       order.ID,
			DiscountCents: order.DiscountCents,
		}); err != nil {
			return err
		}
	}

	if err := s.cart.Clear(ctx, tx, order.BuyerID); err != nil {
		return err
	}

	if order.PaymentMethod == enums.PaymentMethodStripe {
		if err := s.intents.MarkSucceeded(ctx, tx, order.PaymentReference, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark checkout intent succeeded")
		}
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data:          orderCompletedPayload(order, now),
		OccurredAt:    now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order completed")
	}

	changed, err := repo.MarkCompleted(ctx, order.ID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
	}
	if changed {
		order.PaymentStatus = enums.PaymentStatusCompleted
		order.OrderStatus = enums.OrderStatusCompleted
		order.CompletedAt = &now
		for i := range order.Items {
			order.Items[i].AccessGranted = true
			order.Items[i].AccessGrantedAt = &now
		}
	}
	return nil
}

// attributeSellers bumps each seller's cached sales and earnings counters.
// Earnings use the seller's accepted commission share; sellers without one
// accrue sales only.
func (s *Service) attributeSellers(ctx context.Context, tx *gorm.DB, order *models.Purchase) error {
	type tally struct {
		sales   int64
		revenue int64
	}
	totals := make(map[uuid.UUID]*tally)
	for _, item := range order.Items {
		t, ok := totals[item.SellerID]
		if !ok {
			t = &tally{}
			totals[item.SellerID] = t
		}
		t.sales++
		t.revenue += item.UnitPriceCents
	}

	repo := s.sellers.WithTx(tx)
	for _, sellerID := range order.SellerIDs() {
		t := totals[sellerID]
		profile, err := repo.FindByID(ctx, sellerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller profile")
		}
		if profile == nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "seller_id", sellerID.String()), "seller profile missing; sales not attributed")
			}
			continue
		}
		var earnings int64
		if profile.HasAcceptedCommission() {
			earnings = money.PercentOf(t.revenue, profile.CommissionRate.Decimal)
		}
		if err := repo.IncrementSales(ctx, sellerID, t.sales, earnings); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment seller sales")
		}
	}
	return nil
}

func (s *Service) notifyCompleted(ctx context.Context, order *models.Purchase) {
	link := "/orders/" + order.ID.String()
	inputs := []notifications.NotifyInput{{
		UserID:   order.BuyerID,
		Title:    "Your order is complete",
		Body:     fmt.Sprintf("You now have access to %d item(s). Total charged: %s %s.", len(order.Items), money.FormatCents(order.FinalCents), order.Currency),
		Severity: enums.NotificationSeveritySuccess,
		Link:     link,
	}}
	counts := make(map[uuid.UUID]int)
	for _, item := range order.Items {
		counts[item.SellerID]++
	}
	for _, sellerID := range order.SellerIDs() {
		inputs = append(inputs, notifications.NotifyInput{
			UserID:   sellerID,
			Title:    "New sale",
			Body:     fmt.Sprintf("%d of your products were purchased.", counts[sellerID]),
			Severity: enums.NotificationSeveritySuccess,
		})
	}
	notifications.NotifyQuietly(ctx, s.notifier, s.logg, inputs...)
}

func orderCompletedPayload(order *models.Purchase, at time.Time) payloads.OrderCompletedEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID:      item.ProductID,
			SellerID:       item.SellerID,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	var code *string
	if snap := order.Promotion.Val; snap != nil {
		c := snap.Code
		code = &c
	}
	return payloads.OrderCompletedEvent{
		OrderID:          order.ID,
		BuyerID:          order.BuyerID,
		PaymentReference: order.PaymentReference,
		PaymentMethod:    order.PaymentMethod,
		TotalCents:       order.TotalCents,
		DiscountCents:    order.DiscountCents,
		FinalCents:       order.FinalCents,
		Currency:         order.Currency,
		PromoCode:        code,
		Lines:            lines,
		CompletedAt:      at,
	}
}

func (s *Service) withFields(ctx context.Context, fields map[string]any) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, fields)
}

func isRejection(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeIneligible) || pkgerrors.IsCode(err, pkgerrors.CodeNotFound)
}

func failureLabel(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		if details, ok := typed.Details().(map[string]any); ok {
			if reason, ok := details["reason"].(string); ok {
				return reason
			}
		}
		return string(typed.Code())
	}
	return "unknown"
}
