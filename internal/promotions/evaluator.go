// Package promotions decides whether a promotional code applies to a cart and
// how much it discounts. Evaluation is advisory; RecordUsage is the single
// enforcement point and runs inside the settlement transaction.
package promotions

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Reason names the gate a code failed.
type Reason string

const (
	ReasonNotFound         Reason = "not_found"
	ReasonInactive         Reason = "inactive"
	ReasonNotStarted       Reason = "not_started"
	ReasonExpired          Reason = "expired"
	ReasonUsageLimit       Reason = "usage_limit_reached"
	ReasonUserUsageLimit   Reason = "user_usage_limit_reached"
	ReasonMinimumNotMet    Reason = "minimum_order_not_met"
	ReasonNotApplicable    Reason = "not_applicable"
	ReasonNoDiscount       Reason = "no_discount"
	ReasonInvalidPromotion Reason = "invalid_promotion"
)

// Line is a cart line as seen by the evaluator.
type Line struct {
	ProductID  uuid.UUID
	SellerID   uuid.UUID
	PriceCents int64
	Category   string
	Industry   string
}

// Cart is the evaluator's view of the priced cart.
type Cart struct {
	Lines []Line
}

// TotalCents sums line prices.
func (c Cart) TotalCents() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.PriceCents
	}
	return total
}

// Evaluation is an accepted promotion and the discount it yields.
type Evaluation struct {
	Promotion     *models.Promocode
	DiscountCents int64
}

// Percentage returns the percentage for percentage codes.
func (e *Evaluation) Percentage() decimal.NullDecimal {
	if e == nil || e.Promotion == nil || e.Promotion.DiscountType != enums.DiscountTypePercentage {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(e.Promotion.DiscountValue)
}

// Snapshot freezes the evaluation for an order.
func (e *Evaluation) Snapshot() *models.PromotionSnapshot {
	if e == nil || e.Promotion == nil {
		return nil
	}
	return &models.PromotionSnapshot{
		PromocodeID:   e.Promotion.ID,
		Code:          e.Promotion.Code,
		DiscountType:  e.Promotion.DiscountType,
		DiscountValue: e.Promotion.DiscountValue.StringFixed(2),
		DiscountCents: e.DiscountCents,
	}
}

// Rejected builds the ineligible error returned for a failed gate.
func Rejected(reason Reason, message string) error {
	return pkgerrors.New(pkgerrors.CodeIneligible, message).WithDetails(map[string]any{"reason": string(reason)})
}

// RejectionReason extracts the gate name from an evaluator error.
func RejectionReason(err error) (Reason, bool) {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "", false
	}
	if typed.Code() == pkgerrors.CodeNotFound {
		return ReasonNotFound, true
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return "", false
	}
	reason, ok := details["reason"].(string)
	return Reason(reason), ok
}

// Evaluator checks promotion eligibility against a cart.
type Evaluator struct {
	repo Repository
	now  func() time.Time
}

// NewEvaluator builds an evaluator over the promotions repository.
func NewEvaluator(repo Repository) (*Evaluator, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "promotions repository required")
	}
	return &Evaluator{repo: repo, now: time.Now}, nil
}

// WithTx returns an evaluator whose reads join the transaction.
func (e *Evaluator) WithTx(tx *gorm.DB) *Evaluator {
	return &Evaluator{repo: e.repo.WithTx(tx), now: e.now}
}

// Evaluate resolves code and checks every gate against cart for buyerID.
func (e *Evaluator) Evaluate(ctx context.Context, code string, cart Cart, buyerID uuid.UUID) (*Evaluation, error) {
	normalized := models.NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion code required")
	}
	promo, err := e.repo.FindByCode(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion")
	}
	if promo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion code not found").
			WithDetails(map[string]any{"reason": string(ReasonNotFound)})
	}
	return e.check(ctx, promo, cart, buyerID)
}

func (e *Evaluator) check(ctx context.Context, promo *models.Promocode, cart Cart, buyerID uuid.UUID) (*Evaluation, error) {
	if !promo.IsActive {
		return nil, Rejected(ReasonInactive, "promotion is not active")
	}
	now := e.now().UTC()
	if promo.ValidFrom != nil && now.Before(*promo.ValidFrom) {
		return nil, Rejected(ReasonNotStarted, "promotion has not started")
	}
	if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
		return nil, Rejected(ReasonExpired, "promotion has expired")
	}
	if promo.UsageLimit != nil && promo.CurrentUsageCount >= *promo.UsageLimit {
		return nil, Rejected(ReasonUsageLimit, "promotion usage limit reached")
	}
	if promo.UsageLimitPerUser != nil {
		used, err := e.repo.CountUsagesByUser(ctx, promo.ID, buyerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count promotion usage")
		}
		if used >= *promo.UsageLimitPerUser {
			return nil, Rejected(ReasonUserUsageLimit, "promotion already used the maximum number of times")
		}
	}
	total := cart.TotalCents()
	if total < promo.MinOrderCents {
		return nil, pkgerrors.New(pkgerrors.CodeIneligible, "order total below promotion minimum").
			WithDetails(map[string]any{
				"reason":    string(ReasonMinimumNotMet),
				"threshold": promo.MinOrderCents,
				"available": total,
			})
	}
	if !Applies(promo, cart.Lines) {
		return nil, Rejected(ReasonNotApplicable, "promotion does not apply to any cart item")
	}
	discount, err := ComputeDiscount(promo, total)
	if err != nil {
		return nil, err
	}
	return &Evaluation{Promotion: promo, DiscountCents: discount}, nil
}

// Applies reports whether any line matches the code's targeting. Product ids
// are checked first, then categories, then industries; a hit at any tier is
// enough.
func Applies(promo *models.Promocode, lines []Line) bool {
	if promo.IsGlobal {
		return len(lines) > 0
	}
	if len(promo.ProductIDs) > 0 {
		targets := make(map[uuid.UUID]struct{}, len(promo.ProductIDs))
		for _, id := range promo.ProductIDs {
			targets[id] = struct{}{}
		}
		for _, line := range lines {
			if _, ok := targets[line.ProductID]; ok {
				return true
			}
		}
	}
	if anyLineIn(lines, promo.Categories, func(l Line) string { return l.Category }) {
		return true
	}
	if anyLineIn(lines, promo.Industries, func(l Line) string { return l.Industry }) {
		return true
	}
	return false
}

func anyLineIn(lines []Line, values []string, field func(Line) string) bool {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	for _, line := range lines {
		if _, ok := set[field(line)]; ok {
			return true
		}
	}
	return false
}

// ComputeDiscount prices the code against the pre-discount total. Fixed
// values are in major currency units. The result is in [0, total].
func ComputeDiscount(promo *models.Promocode, totalCents int64) (int64, error) {
	if totalCents <= 0 {
		return 0, nil
	}
	var discount int64
	switch promo.DiscountType {
	case enums.DiscountTypePercentage:
		if !money.ValidPercentage(promo.DiscountValue) {
			return 0, Rejected(ReasonInvalidPromotion, fmt.Sprintf("invalid percentage %s", promo.DiscountValue))
		}
		discount = money.PercentOf(totalCents, promo.DiscountValue)
		if promo.MaxDiscountCents != nil && discount > *promo.MaxDiscountCents {
			discount = *promo.MaxDiscountCents
		}
	case enums.DiscountTypeFixed:
		discount = promo.DiscountValue.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	default:
		return 0, Rejected(ReasonInvalidPromotion, "unknown discount type")
	}
	discount = money.NonNegative(discount)
	if discount > totalCents {
		discount = totalCents
	}
	return discount, nil
}
