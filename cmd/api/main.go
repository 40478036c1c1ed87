package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/vaultmart-backend/api"
	"github.com/angelmondragon/vaultmart-backend/api/routes"
	stripewebhook "github.com/angelmondragon/vaultmart-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/vaultmart-backend/internal/wiring"
	"github.com/angelmondragon/vaultmart-backend/pkg/config"
	"github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
	"github.com/angelmondragon/vaultmart-backend/pkg/migrate"
	"github.com/angelmondragon/vaultmart-backend/pkg/redis"
	"github.com/angelmondragon/vaultmart-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	marketplace, err := wiring.Build(wiring.Params{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Payments:   stripeClient,
		Registerer: registry,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to wire marketplace services", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Checkout: marketplace.Checkout,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Settlement.WebhookGuardTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(cfg, logg, routes.Infra{
		DB:          dbClient,
		Redis:       redisClient,
		Idempotency: redisClient,
		Metrics:     registry,
	}, routes.Services{
		Cart:           marketplace.Cart,
		Checkout:       marketplace.Checkout,
		Orders:         marketplace.Settlement,
		Payouts:        marketplace.Payouts,
		Earnings:       marketplace.Earnings,
		PlatformConfig: marketplace.PlatformConfig,
		Notifications:  marketplace.Notifications,
		StripeWebhook:  webhookService,
		StripeSigner:   stripeClient,
		StripeGuard:    webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   id,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	if err := api.Serve(ctx, api.NewServer(addr, handler), logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
