package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/vaultmart-backend/api/responses"
	"github.com/angelmondragon/vaultmart-backend/pkg/config"
	"github.com/angelmondragon/vaultmart-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-VaultMart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each dependency and reports 503 when any of them fails.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-VaultMart-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]db.Pinger{"database": dbP, "redis": redisP}
		status := map[string]string{}
		for name, pinger := range checks {
			if pinger == nil {
				status[name] = "skipped"
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(map[string]any{"dependency": name}))
				return
			}
			status[name] = "ok"
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
