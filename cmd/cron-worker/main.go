package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/vaultmart-backend/internal/cron"
	"github.com/angelmondragon/vaultmart-backend/internal/wiring"
	"github.com/angelmondragon/vaultmart-backend/pkg/config"
	"github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
	"github.com/angelmondragon/vaultmart-backend/pkg/metrics"
	"github.com/angelmondragon/vaultmart-backend/pkg/migrate"
	"github.com/angelmondragon/vaultmart-backend/pkg/redis"
	"github.com/angelmondragon/vaultmart-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	marketplace, err := wiring.Build(wiring.Params{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Payments:   stripeClient,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to wire marketplace services", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient, stripeClient, marketplace)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildRegistry registers the jobs in the order they run each tick.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, stripeClient *stripe.Client, m *wiring.Marketplace) (*cron.Registry, error) {
	registry := cron.NewRegistry()

	reconcile, err := cron.NewPaymentReconcileJob(cron.PaymentReconcileJobParams{
		Logger:    logg,
		Intents:   m.CheckoutIntents,
		Processor: stripeClient,
		Checkout:  m.Checkout,
		After:     cfg.Settlement.ReconcileAfter,
		BatchSize: cfg.Settlement.ReconcileBatchSize,
	})
	if err != nil {
		return nil, err
	}
	notificationCleanup, err := cron.NewNotificationCleanupJob(cron.RetentionJobParams{
		Logger:    logg,
		DB:        dbClient,
		Retention: cfg.Cron.NotificationRetention,
		BatchSize: cfg.Cron.NotificationCleanupBatch,
	}, m.NotificationsRepo)
	if err != nil {
		return nil, err
	}
	outboxRetention, err := cron.NewOutboxRetentionJob(cron.RetentionJobParams{
		Logger:    logg,
		DB:        dbClient,
		Retention: cfg.Cron.OutboxRetention,
		BatchSize: cfg.Cron.OutboxCleanupBatch,
	}, m.OutboxRepo)
	if err != nil {
		return nil, err
	}

	for _, job := range []cron.Job{reconcile, notificationCleanup, outboxRetention} {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
