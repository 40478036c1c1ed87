package promotions

import (
	"context"

	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsageInput is one redemption recorded at settlement.
type UsageInput struct {
	PromocodeID   uuid.UUID
	BuyerID       uuid.UUID
	OrderID       uuid.UUID
	DiscountCents int64
}

// RecordUsage locks the promocode row, re-checks both usage caps and appends
// the ledger entry. Must run inside the settlement transaction.
func (e *Evaluator) RecordUsage(ctx context.Context, tx *gorm.DB, input UsageInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required to record promotion usage")
	}
	repo := e.repo.WithTx(tx)
	promo, err := repo.LockByID(ctx, input.PromocodeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock promotion")
	}
	if promo == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
	}
	if promo.UsageLimit != nil && promo.CurrentUsageCount >= *promo.UsageLimit {
		return Rejected(ReasonUsageLimit, "promotion usage limit reached")
	}
	if promo.UsageLimitPerUser != nil {
		used, err := repo.CountUsagesByUser(ctx, promo.ID, input.BuyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count promotion usage")
		}
		if used >= *promo.UsageLimitPerUser {
			return Rejected(ReasonUserUsageLimit, "promotion already used the maximum number of times")
		}
	}
	usage := &models.PromocodeUsage{
		PromocodeID:   promo.ID,
		UserID:        input.BuyerID,
		OrderID:       input.OrderID,
		DiscountCents: input.DiscountCents,
		UsedAt:        e.now().UTC(),
	}
	if err := repo.InsertUsage(ctx, usage); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert promotion usage")
	}
	if err := repo.IncrementUsage(ctx, promo.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment promotion usage")
	}
	return nil
}

// EvaluateLocked re-evaluates code inside tx with the promocode row locked,
// so the caps checked here cannot move before RecordUsage runs.
func (e *Evaluator) EvaluateLocked(ctx context.Context, tx *gorm.DB, code string, cart Cart, buyerID uuid.UUID) (*Evaluation, error) {
	bound := e.WithTx(tx)
	promo, err := bound.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion")
	}
	if promo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion code not found").
			WithDetails(map[string]any{"reason": string(ReasonNotFound)})
	}
	locked, err := bound.repo.LockByID(ctx, promo.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock promotion")
	}
	if locked == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion code not found")
	}
	return bound.check(ctx, locked, cart, buyerID)
}
