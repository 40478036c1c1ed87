// Package wiring assembles the marketplace services shared by the API and
// the cron worker.
package wiring

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/vaultmart-backend/internal/cart"
	"github.com/angelmondragon/vaultmart-backend/internal/catalog"
	"github.com/angelmondragon/vaultmart-backend/internal/checkout"
	"github.com/angelmondragon/vaultmart-backend/internal/earnings"
	"github.com/angelmondragon/vaultmart-backend/internal/notifications"
	"github.com/angelmondragon/vaultmart-backend/internal/payouts"
	"github.com/angelmondragon/vaultmart-backend/internal/platformconfig"
	"github.com/angelmondragon/vaultmart-backend/internal/promotions"
	"github.com/angelmondragon/vaultmart-backend/internal/sellers"
	"github.com/angelmondragon/vaultmart-backend/internal/settlement"
	"github.com/angelmondragon/vaultmart-backend/pkg/config"
	"github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
	"github.com/angelmondragon/vaultmart-backend/pkg/metrics"
	"github.com/angelmondragon/vaultmart-backend/pkg/outbox"
)

type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Payments   checkout.PaymentProcessor
	Registerer prometheus.Registerer
}

// Marketplace holds the constructed services and the repositories other
// processes reach into directly.
type Marketplace struct {
	Cart              cart.Service
	Checkout          *checkout.Service
	CheckoutIntents   checkout.Repository
	Settlement        *settlement.Service
	Earnings          *earnings.Calculator
	Payouts           *payouts.Service
	PlatformConfig    *platformconfig.Service
	Notifications     notifications.Service
	NotificationsRepo notifications.Repository
	OutboxRepo        *outbox.Repository
}

func Build(p Params) (*Marketplace, error) {
	if p.Config == nil {
		return nil, errors.New("config required")
	}
	if p.DB == nil {
		return nil, errors.New("db client required")
	}
	if p.Payments == nil {
		return nil, errors.New("payment processor required")
	}
	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	conn := p.DB.DB()

	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, p.Logger)

	notificationsRepo := notifications.NewRepository(conn)
	notifier, err := notifications.NewNotifier(notificationsRepo)
	if err != nil {
		return nil, err
	}
	notificationsSvc, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return nil, err
	}

	configSvc, err := platformconfig.NewService(platformconfig.ServiceParams{
		Repository:        platformconfig.NewRepository(conn),
		TransactionRunner: p.DB,
		Outbox:            emitter,
		Defaults:          p.Config.Platform,
		MaxAge:            p.Config.Settlement.PlatformConfigMaxAge,
		Logger:            p.Logger,
	})
	if err != nil {
		return nil, err
	}

	catalogRepo := catalog.NewRepository(conn)
	sellerRepo := sellers.NewRepository(conn)
	evaluator, err := promotions.NewEvaluator(promotions.NewRepository(conn))
	if err != nil {
		return nil, err
	}

	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repository:        cart.NewRepository(conn),
		Catalog:           catalogRepo,
		Promotions:        evaluator,
		TransactionRunner: p.DB,
		Logger:            p.Logger,
	})
	if err != nil {
		return nil, err
	}

	intents := checkout.NewRepository(conn)
	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		Repository:        settlement.NewRepository(conn),
		TransactionRunner: p.DB,
		Catalog:           catalogRepo,
		Sellers:           sellerRepo,
		Promotions:        evaluator,
		Cart:              cartSvc,
		Intents:           intents,
		Outbox:            emitter,
		Notifier:          notifier,
		Metrics:           metrics.NewSettlementMetrics(reg),
		Logger:            p.Logger,
		Currency:          p.Config.Settlement.Currency,
	})
	if err != nil {
		return nil, err
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Repository: intents,
		Cart:       cartSvc,
		Settlement: settlementSvc,
		Processor:  p.Payments,
		Currency:   p.Config.Settlement.Currency,
		Logger:     p.Logger,
	})
	if err != nil {
		return nil, err
	}

	calculator, err := earnings.NewCalculator(earnings.CalculatorParams{
		Repository: earnings.NewRepository(conn),
		Sellers:    sellerRepo,
		Config:     configSvc,
	})
	if err != nil {
		return nil, err
	}

	payoutSvc, err := payouts.NewService(payouts.ServiceParams{
		Repository:        payouts.NewRepository(conn),
		Sellers:           sellerRepo,
		Earnings:          calculator,
		Config:            configSvc,
		TransactionRunner: p.DB,
		Outbox:            emitter,
		Notifier:          notifier,
		Metrics:           metrics.NewPayoutMetrics(reg),
		Logger:            p.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Marketplace{
		Cart:              cartSvc,
		Checkout:          checkoutSvc,
		CheckoutIntents:   intents,
		Settlement:        settlementSvc,
		Earnings:          calculator,
		Payouts:           payoutSvc,
		PlatformConfig:    configSvc,
		Notifications:     notificationsSvc,
		NotificationsRepo: notificationsRepo,
		OutboxRepo:        outboxRepo,
	}, nil
}
