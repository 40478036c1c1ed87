// Package payouts owns the payout state machine: seller requests, admin
// review transitions and the seller-facing history queries.
package payouts

import (
	"context"
	"time"

	"github.com/angelmondragon/vaultmart-backend/internal/earnings"
	"github.com/angelmondragon/vaultmart-backend/internal/notifications"
	"github.com/angelmondragon/vaultmart-backend/internal/platformconfig"
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
	"github.com/angelmondragon/vaultmart-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReasonOnHold             = "on_hold"
	ReasonBelowMinimum       = "below_minimum"
	ReasonExceedsAvailable   = "exceeds_available"
	ReasonPayoutOpen         = "payout_in_progress"
	ReasonMethodMissing      = "payout_method_missing"
	ReasonInvalidDetails     = "invalid_payout_details"
	recentPayoutsOnDashboard = 5
	sellerPayoutsLink        = "/seller/payouts"
	systemActorRole          = "system"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type earningsCalculator interface {
	ComputeEarnings(ctx context.Context, sellerID uuid.UUID, from, to *time.Time) (earnings.Snapshot, error)
	ComputeEarningsTx(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (earnings.Snapshot, error)
}

// RequestInput is a seller's payout request. A nil amount requests the full
// available balance.
type RequestInput struct {
	SellerID    uuid.UUID
	AmountCents *int64
	Notes       *string
}

type ServiceParams struct {
	Repository        Repository
	Sellers           sellers.Repository
	Earnings          earningsCalculator
	Config            platformconfig.Provider
	TransactionRunner txRunner
	Outbox            outbox.Emitter
	Notifier          notifications.Sender
	Metrics           *metrics.PayoutMetrics
	Logger            *logger.Logger
}

type Service struct {
	repo     Repository
	sellers  sellers.Repository
	earnings earningsCalculator
	config   platformconfig.Provider
	tx       txRunner
	outbox   outbox.Emitter
	notifier notifications.Sender
	metrics  *metrics.PayoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout repository required")
	}
	if params.Sellers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "seller repository required")
	}
	if params.Earnings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "earnings calculator required")
	}
	if params.Config == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "platform config provider required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	return &Service{
		repo:     params.Repository,
		sellers:  params.Sellers,
		earnings: params.Earnings,
		config:   params.Config,
		tx:       params.TransactionRunner,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// Request opens a pending payout for the seller's available balance. The
// open-payout guard and the earnings guards are evaluated inside the creating
// transaction while the seller row is locked; the partial unique index on open
// payouts backs the guard on concurrent requests.
func (s *Service) Request(ctx context.Context, input RequestInput) (*models.Payout, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.AmountCents != nil && *input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive").
			WithDetails(map[string]any{"amount_cents": *input.AmountCents})
	}
	cfg, err := s.config.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	var (
		created      models.Payout
		autoApproved bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		profile, err := s.sellers.WithTx(tx).LockByID(ctx, input.SellerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock seller profile")
		}
		if profile == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		open, err := repo.FindOpenBySeller(ctx, input.SellerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open payouts")
		}
		if open != nil {
			return openPayoutConflict(open)
		}

		snap, err := s.earnings.ComputeEarningsTx(ctx, tx, input.SellerID)
		if err != nil {
			return err
		}
		amount, err := payoutAmount(snap, input.AmountCents)
		if err != nil {
			return err
		}
		details, err := payoutDetails(*profile)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		created = models.Payout{
			ID:                 uuid.New(),
			SellerID:           input.SellerID,
			AmountCents:        amount,
			GrossCents:         money.ProRata(snap.GrossCents, amount, snap.NetCents),
			PlatformFeeCents:   money.ProRata(snap.PlatformFeeCents, amount, snap.NetCents),
			ProcessingFeeCents: money.ProRata(snap.ProcessingFeeCents, amount, snap.NetCents),
			Currency:           snap.Currency,
			Method:             details.Method,
			Details:            details,
			Status:             enums.PayoutStatusPending,
			PeriodStart:        profile.LastPayoutAt,
			PeriodEnd:          &now,
			OrderIDs:           dbtypes.UUIDArray(snap.OrderIDs),
			Notes:              input.Notes,
			RequestedAt:        now,
		}
		if err := repo.Create(ctx, &created); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "seller already has a payout in progress").
					WithDetails(map[string]any{"reason": ReasonPayoutOpen})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}
		if err := s.emitTransition(ctx, tx, created, "", enums.PayoutStatusPending, "", &outbox.ActorRef{UserID: input.SellerID, Role: string(enums.RoleSeller)}); err != nil {
			return err
		}

		if !cfg.AutoPayout {
			return nil
		}
		fields := map[string]any{"approved_at": now, "updated_at": now}
		ok, err := repo.UpdateStatus(ctx, created.ID, enums.PayoutStatusPending, enums.PayoutStatusApproved, fields)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auto approve payout")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout changed during auto approval")
		}
		created.Status = enums.PayoutStatusApproved
		created.ApprovedAt = &now
		autoApproved = true
		return s.emitTransition(ctx, tx, created, enums.PayoutStatusPending, enums.PayoutStatusApproved, "", &outbox.ActorRef{Role: systemActorRole})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition("", string(enums.PayoutStatusPending))
	inputs := []notifications.NotifyInput{{
		UserID:   created.SellerID,
		Title:    "Payout requested",
		Body:     "Your payout request of " + money.FormatCents(created.AmountCents) + " " + created.Currency + " was received.",
		Severity: enums.NotificationSeverityInfo,
		Link:     sellerPayoutsLink,
	}}
	if autoApproved {
		s.metrics.IncTransition(string(enums.PayoutStatusPending), string(enums.PayoutStatusApproved))
		inputs = append(inputs, approvedNotice(created))
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payout_id":     created.ID.String(),
			"seller_id":     created.SellerID.String(),
			"amount_cents":  created.AmountCents,
			"auto_approved": autoApproved,
		})
		s.logg.Info(logCtx, "payout requested")
	}
	notifications.NotifyQuietly(ctx, s.notifier, s.logg, inputs...)
	return &created, nil
}

func openPayoutConflict(open *models.Payout) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "seller already has a payout in progress").
		WithDetails(map[string]any{
			"reason":    ReasonPayoutOpen,
			"payout_id": open.ID.String(),
			"status":    open.Status,
		})
}

// payoutAmount picks the payout amount from the snapshot, honoring a smaller
// requested amount and the platform maximum.
func payoutAmount(snap earnings.Snapshot, requested *int64) (int64, error) {
	if snap.OnHold {
		details := map[string]any{"reason": ReasonOnHold}
		if snap.HoldUntil != nil {
			details["hold_until"] = snap.HoldUntil.Format(time.RFC3339)
		}
		return 0, pkgerrors.New(pkgerrors.CodeIneligible, "seller is within the payout hold period").WithDetails(details)
	}
	if !snap.Eligible || snap.AvailableCents <= 0 {
		return 0, belowMinimum(snap, snap.AvailableCents)
	}
	amount := snap.AvailableCents
	if requested != nil {
		if *requested > snap.AvailableCents {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "requested amount exceeds available balance").
				WithDetails(map[string]any{
					"reason":                     ReasonExceedsAvailable,
					"requested_cents":            *requested,
					"available_for_payout_cents": snap.AvailableCents,
				})
		}
		if *requested < snap.MinimumPayoutCents {
			return 0, belowMinimum(snap, *requested)
		}
		amount = *requested
	}
	if snap.MaximumPayoutCents > 0 && amount > snap.MaximumPayoutCents {
		amount = snap.MaximumPayoutCents
	}
	return amount, nil
}

func belowMinimum(snap earnings.Snapshot, amount int64) error {
	return pkgerrors.New(pkgerrors.CodeIneligible, "amount is below the minimum payout").
		WithDetails(map[string]any{
			"reason":                     ReasonBelowMinimum,
			"amount_cents":               amount,
			"available_for_payout_cents": snap.AvailableCents,
			"minimum_payout_cents":       snap.MinimumPayoutCents,
		})
}

func payoutDetails(profile models.SellerProfile) (types.PayoutDetails, error) {
	if profile.PayoutMethod == nil || !profile.PayoutMethod.IsValid() {
		return types.PayoutDetails{}, pkgerrors.New(pkgerrors.CodeValidation, "payout method not configured").
			WithDetails(map[string]any{"reason": ReasonMethodMissing})
	}
	details, err := types.ParsePayoutDetails(*profile.PayoutMethod, profile.PayoutDetails.Val)
	if err != nil {
		return types.PayoutDetails{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout details").
			WithDetails(map[string]any{"reason": ReasonInvalidDetails, "method": *profile.PayoutMethod})
	}
	return details, nil
}

func (s *Service) emitTransition(ctx context.Context, tx *gorm.DB, payout models.Payout, from, to enums.PayoutStatus, reason string, actor *outbox.ActorRef) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPayoutStatusChanged,
		AggregateType: enums.AggregatePayout,
		AggregateID:   payout.ID,
		Actor:         actor,
		Data: payloads.PayoutStatusChangedEvent{
			PayoutID:    payout.ID,
			SellerID:    payout.SellerID,
			From:        from,
			To:          to,
			AmountCents: payout.AmountCents,
			Reason:      reason,
			OccurredAt:  s.now().UTC(),
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payout event")
	}
	return nil
}
