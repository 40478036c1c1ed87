package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/angelmondragon/vaultmart-backend/internal/cart"
	"github.com/angelmondragon/vaultmart-backend/internal/settlement"
	"github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/vaultmart-backend/pkg/db/types"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/vaultmart-backend/pkg/stripe"
	"github.com/google/uuid"
)

const reasonPaymentPending = "payment_pending"

type cartPricer interface {
	Price(ctx context.Context, buyerID uuid.UUID) (*cart.View, error)
}

type settler interface {
	Settle(ctx context.Context, input settlement.SettleInput) (*settlement.Result, error)
	HandlePaymentFailure(ctx context.Context, input settlement.FailureInput) error
}

// PaymentProcessor creates and retrieves processor payment intents.
type PaymentProcessor interface {
	CreatePaymentIntent(ctx context.Context, input pkgstripe.CreateIntentInput) (*pkgstripe.Intent, error)
	GetPaymentIntent(ctx context.Context, id string) (*pkgstripe.Intent, error)
}

// IntentResult is returned when checkout starts. Free carts settle
// immediately and carry the completed order instead of a client secret.
type IntentResult struct {
	CheckoutIntentID  uuid.UUID        `json:"checkout_intent_id,omitempty"`
	ProcessorIntentID string           `json:"payment_intent_id,omitempty"`
	ClientSecret      string           `json:"client_secret,omitempty"`
	AmountCents       int64            `json:"amount_cents"`
	Currency          string           `json:"currency"`
	Free              bool             `json:"free"`
	Order             *models.Purchase `json:"order,omitempty"`
}

// ConfirmResult reports the outcome of a processed payment intent.
type ConfirmResult struct {
	Status         pkgstripe.IntentStatus `json:"status"`
	Order          *models.Purchase       `json:"order,omitempty"`
	AlreadySettled bool                   `json:"already_settled"`
}

type ServiceParams struct {
	Repository Repository
	Cart       cartPricer
	Settlement settler
	Processor  PaymentProcessor
	Currency   string
	Logger     *logger.Logger
}

// Service is the boundary between the cart, the payment processor and settlement.
type Service struct {
	repo      Repository
	cart      cartPricer
	settle    settler
	processor PaymentProcessor
	currency  string
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout repository required")
	}
	if params.Cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service required")
	}
	if params.Settlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	if params.Processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment processor required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		repo:      params.Repository,
		cart:      params.Cart,
		settle:    params.Settlement,
		processor: params.Processor,
		currency:  currency,
		logg:      params.Logger,
	}, nil
}

// CreateIntent prices the buyer's cart and opens a processor payment intent
// for the final amount. A zero final amount settles right away.
func (s *Service) CreateIntent(ctx context.Context, buyerID uuid.UUID) (*IntentResult, error) {
	view, err := s.cart.Price(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	snapshot := view.Snapshot()
	if len(snapshot.ProductIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no purchasable items")
	}

	if snapshot.FinalCents == 0 {
		result, err := s.settle.Settle(ctx, settlement.SettleInput{
			BuyerID:  buyerID,
			Snapshot: snapshot,
			Payment: settlement.PaymentConfirmation{
				Method:   enums.PaymentMethodFree,
				Currency: s.currency,
				Source:   settlement.SourceFree,
			},
		})
		if err != nil {
			return nil, err
		}
		return &IntentResult{Free: true, Currency: s.currency, Order: result.Order}, nil
	}

	intent, err := s.processor.CreatePaymentIntent(ctx, pkgstripe.CreateIntentInput{
		AmountCents: snapshot.FinalCents,
		Currency:    s.currency,
		Metadata: map[string]string{
			"buyer_id": buyerID.String(),
			"cart_id":  view.CartID.String(),
		},
		IdempotencyKey: idempotencyKey(view.CartID, snapshot),
		Description:    fmt.Sprintf("Marketplace order (%d items)", len(snapshot.ProductIDs)),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	record := &models.CheckoutIntent{
		ID:                uuid.New(),
		BuyerID:           buyerID,
		ProcessorIntentID: intent.ID,
		AmountCents:       snapshot.FinalCents,
		Currency:          s.currency,
		Snapshot:          dbtypes.NewJSON(snapshot),
		Status:            enums.CheckoutIntentStatusPending,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store checkout intent")
		}
		existing, findErr := s.repo.FindByProcessorID(ctx, intent.ID)
		if findErr != nil || existing == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store checkout intent")
		}
		record = existing
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"buyer_id":          buyerID.String(),
			"payment_reference": intent.ID,
			"amount_cents":      snapshot.FinalCents,
		})
		s.logg.Info(logCtx, "checkout intent created")
	}
	return &IntentResult{
		CheckoutIntentID:  record.ID,
		ProcessorIntentID: intent.ID,
		ClientSecret:      intent.ClientSecret,
		AmountCents:       record.AmountCents,
		Currency:          record.Currency,
	}, nil
}

// Confirm is the synchronous confirmation path: it asks the processor for the
// intent's current state and settles or records the failure.
func (s *Service) Confirm(ctx context.Context, buyerID uuid.UUID, processorIntentID string) (*ConfirmResult, error) {
	processorIntentID = strings.TrimSpace(processorIntentID)
	if processorIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	record, err := s.repo.FindByProcessorID(ctx, processorIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout intent")
	}
	if record == nil || record.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout intent not found")
	}
	remote, err := s.processor.GetPaymentIntent(ctx, processorIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve payment intent")
	}
	return s.process(ctx, record, remote, settlement.SourceConfirm)
}

// ProcessIntent applies a processor-reported intent state. Webhooks and the
// reconciliation sweep both land here.
func (s *Service) ProcessIntent(ctx context.Context, remote *pkgstripe.Intent, source string) (*ConfirmResult, error) {
	if remote == nil || remote.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent required")
	}
	record, err := s.repo.FindByProcessorID(ctx, remote.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout intent")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout intent not found")
	}
	return s.process(ctx, record, remote, source)
}

func (s *Service) process(ctx context.Context, record *models.CheckoutIntent, remote *pkgstripe.Intent, source string) (*ConfirmResult, error) {
	switch remote.Status {
	case pkgstripe.IntentStatusSucceeded:
		if remote.AmountCents != record.AmountCents {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"payment_reference": remote.ID,
					"paid_cents":        remote.AmountCents,
					"expected_cents":    record.AmountCents,
				})
				s.logg.Error(logCtx, "payment amount does not match checkout intent", nil)
			}
			err := pkgerrors.New(pkgerrors.CodeValidation, "payment amount does not match checkout").
				WithDetails(map[string]any{"reason": "amount_mismatch", "paid_cents": remote.AmountCents, "expected_cents": record.AmountCents})
			s.flagForReview(ctx, remote.ID, err)
			return nil, err
		}
		payment := settlement.PaymentConfirmation{
			Reference:   remote.ID,
			Method:      enums.PaymentMethodStripe,
			AmountCents: remote.AmountCents,
			Currency:    record.Currency,
			Source:      source,
		}
		if remote.ChargeID != "" {
			charge := remote.ChargeID
			payment.TransactionID = &charge
		}
		result, err := s.settle.Settle(ctx, settlement.SettleInput{
			BuyerID:  record.BuyerID,
			Snapshot: record.Snapshot.Val,
			Payment:  payment,
		})
		if err != nil {
			if IsPermanent(err) {
				s.flagForReview(ctx, remote.ID, err)
			}
			return nil, err
		}
		return &ConfirmResult{Status: remote.Status, Order: result.Order, AlreadySettled: result.AlreadySettled}, nil

	case pkgstripe.IntentStatusFailed, pkgstripe.IntentStatusCanceled:
		status := enums.CheckoutIntentStatusFailed
		if remote.Status == pkgstripe.IntentStatusCanceled {
			status = enums.CheckoutIntentStatusCanceled
		}
		if err := s.settle.HandlePaymentFailure(ctx, settlement.FailureInput{
			BuyerID:   record.BuyerID,
			Reference: remote.ID,
			Status:    status,
			Reason:    remote.FailureMessage,
			Source:    source,
		}); err != nil {
			return nil, err
		}
		return &ConfirmResult{Status: remote.Status}, nil

	default:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment not yet confirmed").
			WithDetails(map[string]any{"reason": reasonPaymentPending, "status": string(remote.Status)})
	}
}

// IsPaymentPending reports whether err means the processor has not resolved
// the intent yet.
func IsPaymentPending(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		return false
	}
	details, ok := typed.Details().(map[string]any)
	return ok && details["reason"] == reasonPaymentPending
}

// IsPermanent reports whether err will fail the same way on every retry.
// Conflicts and dependency failures stay retryable.
func IsPermanent(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeValidation) ||
		pkgerrors.IsCode(err, pkgerrors.CodeIneligible) ||
		pkgerrors.IsCode(err, pkgerrors.CodeStateConflict)
}

// flagForReview parks the intent with the error's reason. A failed flag is
// logged and otherwise ignored; the caller still returns the original error.
func (s *Service) flagForReview(ctx context.Context, reference string, cause error) {
	reason := reviewReason(cause)
	err := s.repo.FlagForReview(ctx, reference, reason)
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"payment_reference": reference, "review_reason": reason})
	if err != nil {
		s.logg.Error(logCtx, "flag checkout intent for review", err)
		return
	}
	s.logg.Warn(logCtx, "checkout intent flagged for manual review")
}

func reviewReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return string(pkgerrors.CodeInternal)
	}
	if details, ok := typed.Details().(map[string]any); ok {
		if reason, ok := details["reason"].(string); ok && reason != "" {
			return reason
		}
	}
	return string(typed.Code())
}

func idempotencyKey(cartID uuid.UUID, snapshot models.CartSnapshot) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|", cartID, snapshot.TotalCents, snapshot.FinalCents)
	if snapshot.PromoCode != nil {
		h.Write([]byte(*snapshot.PromoCode))
	}
	for _, id := range snapshot.ProductIDs {
		h.Write([]byte(id.String()))
	}
	return "checkout_" + hex.EncodeToString(h.Sum(nil))[:32]
}
