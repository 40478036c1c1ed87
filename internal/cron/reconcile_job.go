package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/vaultmart-backend/internal/checkout"
	"github.com/angelmondragon/vaultmart-backend/internal/settlement"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/vaultmart-backend/pkg/stripe"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	defaultReconcileAfter = 15 * time.Minute
	defaultReconcileBatch = 100
)

type pendingIntentLister interface {
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.CheckoutIntent, error)
	MarkChecked(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type intentFetcher interface {
	GetPaymentIntent(ctx context.Context, id string) (*pkgstripe.Intent, error)
}

type intentProcessor interface {
	ProcessIntent(ctx context.Context, remote *pkgstripe.Intent, source string) (*checkout.ConfirmResult, error)
}

type PaymentReconcileJobParams struct {
	Logger    *logger.Logger
	Intents   pendingIntentLister
	Processor intentFetcher
	Checkout  intentProcessor
	After     time.Duration
	BatchSize int
}

// paymentReconcileJob re-reads checkout intents the webhook never resolved
// and pushes them through the same settlement path.
type paymentReconcileJob struct {
	logg      *logger.Logger
	intents   pendingIntentLister
	processor intentFetcher
	checkout  intentProcessor
	after     time.Duration
	batch     int
	now       func() time.Time
}

func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Intents == nil {
		return nil, fmt.Errorf("checkout intent repository required")
	}
	if params.Processor == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	after := params.After
	if after <= 0 {
		after = defaultReconcileAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &paymentReconcileJob{
		logg:      params.Logger,
		intents:   params.Intents,
		processor: params.Processor,
		checkout:  params.Checkout,
		after:     after,
		batch:     batch,
		now:       time.Now,
	}, nil
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.after)
	pending, err := j.intents.ListPendingOlderThan(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list pending intents: %w", err)
	}

	var (
		errs                      error
		settled, resolved, waited int
		checked                   = make([]uuid.UUID, 0, len(pending))
	)
	for _, intent := range pending {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		checked = append(checked, intent.ID)
		remote, err := j.processor.GetPaymentIntent(ctx, intent.ProcessorIntentID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("fetch %s: %w", intent.ProcessorIntentID, err))
			continue
		}
		result, err := j.checkout.ProcessIntent(ctx, remote, settlement.SourceReconcile)
		switch {
		case checkout.IsPaymentPending(err):
			waited++
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("process %s: %w", intent.ProcessorIntentID, err))
		case result != nil && result.Order != nil:
			settled++
		default:
			resolved++
		}
	}

	// Rotate checked intents to the back so abandoned ones cannot starve the batch.
	if err := j.intents.MarkChecked(ctx, checked, now); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("mark checked: %w", err))
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":      cutoff,
		"scanned":     len(pending),
		"settled":     settled,
		"failed":      resolved,
		"still_open":  waited,
		"error_count": len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "payment reconciliation complete")
	return errs
}
