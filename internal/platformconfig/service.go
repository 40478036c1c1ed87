// Package platformconfig owns the singleton marketplace fee and payout
// settings. Reads come from an in-process snapshot that writers replace
// atomically, so a stale-but-valid value is acceptable to readers.
package platformconfig

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/vaultmart-backend/pkg/config"
	pkgdb "github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
	"github.com/angelmondragon/vaultmart-backend/pkg/money"
	"github.com/angelmondragon/vaultmart-backend/pkg/outbox"
	"github.com/angelmondragon/vaultmart-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultMaxAge  = 30 * time.Second
	maxHoldDays    = 365
	currencyLength = 3
)

// Provider is the read handle passed to earnings and payouts.
type Provider interface {
	GetActive(ctx context.Context) (models.PlatformConfig, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	PlatformFeePercentage *decimal.Decimal `json:"platform_fee_percentage"`
	MinimumPayoutCents    *int64           `json:"minimum_payout_cents"`
	ProcessingFeeCents    *int64           `json:"processing_fee_cents"`
	HoldPeriodDays        *int             `json:"hold_period_days"`
	MaximumPayoutCents    *int64           `json:"maximum_payout_cents"`
	AutoPayout            *bool            `json:"auto_payout"`
	Currency              *string          `json:"currency"`
}

type ServiceParams struct {
	Repository        Repository
	TransactionRunner txRunner
	Outbox            outbox.Emitter
	Defaults          config.PlatformDefaultsConfig
	MaxAge            time.Duration
	Logger            *logger.Logger
}

type snapshot struct {
	cfg      models.PlatformConfig
	loadedAt time.Time
}

// Service manages the active platform configuration.
type Service struct {
	repo     Repository
	tx       txRunner
	outbox   outbox.Emitter
	defaults config.PlatformDefaultsConfig
	maxAge   time.Duration
	logg     *logger.Logger
	current  atomic.Pointer[snapshot]
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "platform config repository required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if _, err := decimal.NewFromString(params.Defaults.FeePercent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalid default platform fee")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	return &Service{
		repo:     params.Repository,
		tx:       params.TransactionRunner,
		outbox:   params.Outbox,
		defaults: params.Defaults,
		maxAge:   maxAge,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// GetActive returns the active configuration, creating it from defaults on
// first access.
func (s *Service) GetActive(ctx context.Context) (models.PlatformConfig, error) {
	if snap := s.current.Load(); snap != nil && s.now().Sub(snap.loadedAt) < s.maxAge {
		return snap.cfg, nil
	}
	cfg, err := s.repo.FindActive(ctx)
	if err != nil {
		return s.staleOr(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load platform config"))
	}
	if cfg == nil {
		cfg, err = s.createDefault(ctx)
		if err != nil {
			return s.staleOr(err)
		}
	}
	s.store(*cfg)
	return *cfg, nil
}

// staleOr serves the last snapshot when a refresh fails.
func (s *Service) staleOr(err error) (models.PlatformConfig, error) {
	if snap := s.current.Load(); snap != nil {
		return snap.cfg, nil
	}
	return models.PlatformConfig{}, err
}

func (s *Service) createDefault(ctx context.Context) (*models.PlatformConfig, error) {
	cfg := s.defaultRecord(nil)
	err := s.repo.Create(ctx, cfg)
	if err == nil {
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "platform_config_id", cfg.ID.String()), "platform config created from defaults")
		}
		return cfg, nil
	}
	if !pkgdb.IsUniqueViolation(err, "") {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create platform config")
	}
	existing, findErr := s.repo.FindActive(ctx)
	if findErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload platform config")
	}
	if existing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "platform config changed concurrently")
	}
	return existing, nil
}

func (s *Service) defaultRecord(updatedBy *uuid.UUID) *models.PlatformConfig {
	fee, _ := decimal.NewFromString(s.defaults.FeePercent)
	currency := strings.ToUpper(strings.TrimSpace(s.defaults.Currency))
	if currency == "" {
		currency = "USD"
	}
	return &models.PlatformConfig{
		ID:                    uuid.New(),
		PlatformFeePercentage: fee,
		MinimumPayoutCents:    s.defaults.MinimumPayoutCents,
		ProcessingFeeCents:    s.defaults.ProcessingFeeCents,
		HoldPeriodDays:        s.defaults.HoldPeriodDays,
		MaximumPayoutCents:    s.defaults.MaximumPayoutCents,
		AutoPayout:            s.defaults.AutoPayout,
		Currency:              currency,
		IsActive:              true,
		UpdatedBy:             updatedBy,
	}
}

// Update applies a partial change to the active configuration.
func (s *Service) Update(ctx context.Context, adminID uuid.UUID, input UpdateInput) (models.PlatformConfig, error) {
	if adminID == uuid.Nil {
		return models.PlatformConfig{}, pkgerrors.New(pkgerrors.CodeValidation, "admin id required")
	}
	var updated models.PlatformConfig
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cfg, err := repo.LockActive(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock platform config")
		}
		if cfg == nil {
			cfg = s.defaultRecord(nil)
			if err := repo.Create(ctx, cfg); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create platform config")
			}
		}
		apply(cfg, input)
		if err := Validate(*cfg); err != nil {
			return err
		}
		cfg.UpdatedBy = &adminID
		if err := repo.Save(ctx, cfg); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save platform config")
		}
		if err := s.emitChanged(ctx, tx, cfg, adminID, false); err != nil {
			return err
		}
		updated = *cfg
		return nil
	})
	if err != nil {
		return models.PlatformConfig{}, err
	}
	s.store(updated)
	return updated, nil
}

// Reset deactivates the current record and installs a fresh default one.
func (s *Service) Reset(ctx context.Context, adminID uuid.UUID) (models.PlatformConfig, error) {
	if adminID == uuid.Nil {
		return models.PlatformConfig{}, pkgerrors.New(pkgerrors.CodeValidation, "admin id required")
	}
	var fresh models.PlatformConfig
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockActive(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock platform config")
		}
		if current != nil {
			if err := repo.Deactivate(ctx, current.ID, s.now().UTC()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate platform config")
			}
		}
		cfg := s.defaultRecord(&adminID)
		if err := repo.Create(ctx, cfg); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create platform config")
		}
		if err := s.emitChanged(ctx, tx, cfg, adminID, true); err != nil {
			return err
		}
		fresh = *cfg
		return nil
	})
	if err != nil {
		return models.PlatformConfig{}, err
	}
	s.store(fresh)
	return fresh, nil
}

func (s *Service) emitChanged(ctx context.Context, tx *gorm.DB, cfg *models.PlatformConfig, adminID uuid.UUID, reset bool) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPlatformConfigChanged,
		AggregateType: enums.AggregatePlatformConfig,
		AggregateID:   cfg.ID,
		Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.RoleAdmin)},
		Data: payloads.PlatformConfigChangedEvent{
			ConfigID:  cfg.ID,
			UpdatedBy: cfg.UpdatedBy,
			Reset:     reset,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit platform config event")
	}
	return nil
}

func (s *Service) store(cfg models.PlatformConfig) {
	s.current.Store(&snapshot{cfg: cfg, loadedAt: s.now()})
}

func apply(cfg *models.PlatformConfig, input UpdateInput) {
	if input.PlatformFeePercentage != nil {
		cfg.PlatformFeePercentage = *input.PlatformFeePercentage
	}
	if input.MinimumPayoutCents != nil {
		cfg.MinimumPayoutCents = *input.MinimumPayoutCents
	}
	if input.ProcessingFeeCents != nil {
		cfg.ProcessingFeeCents = *input.ProcessingFeeCents
	}
	if input.HoldPeriodDays != nil {
		cfg.HoldPeriodDays = *input.HoldPeriodDays
	}
	if input.MaximumPayoutCents != nil {
		cfg.MaximumPayoutCents = *input.MaximumPayoutCents
	}
	if input.AutoPayout != nil {
		cfg.AutoPayout = *input.AutoPayout
	}
	if input.Currency != nil {
		cfg.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
}

// Validate checks configuration ranges. A zero maximum payout means uncapped.
func Validate(cfg models.PlatformConfig) error {
	fields := map[string]string{}
	if !money.ValidPercentage(cfg.PlatformFeePercentage) {
		fields["platform_fee_percentage"] = "must be between 0 and 100"
	}
	if cfg.MinimumPayoutCents < 0 {
		fields["minimum_payout_cents"] = "must be non-negative"
	}
	if cfg.ProcessingFeeCents < 0 {
		fields["processing_fee_cents"] = "must be non-negative"
	}
	if cfg.MaximumPayoutCents < 0 {
		fields["maximum_payout_cents"] = "must be non-negative"
	} else if cfg.MaximumPayoutCents > 0 && cfg.MaximumPayoutCents < cfg.MinimumPayoutCents {
		fields["maximum_payout_cents"] = "must be at least the minimum payout"
	}
	if cfg.HoldPeriodDays < 0 || cfg.HoldPeriodDays > maxHoldDays {
		fields["hold_period_days"] = "must be between 0 and 365"
	}
	if len(cfg.Currency) != currencyLength {
		fields["currency"] = "must be a 3-letter ISO code"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid platform configuration").WithDetails(fields)
	}
	return nil
}
