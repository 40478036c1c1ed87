package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/vaultmart-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/vaultmart-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/vaultmart-backend/api/controllers/orders"
	payoutcontrollers "github.com/angelmondragon/vaultmart-backend/api/controllers/payouts"
	webhookcontrollers "github.com/angelmondragon/vaultmart-backend/api/controllers/webhooks"
	"github.com/angelmondragon/vaultmart-backend/api/middleware"
	"github.com/angelmondragon/vaultmart-backend/internal/notifications"
	"github.com/angelmondragon/vaultmart-backend/pkg/config"
	"github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
)

// Services groups the domain handlers mounted by NewRouter. Nil entries
// answer with an internal error rather than panicking.
type Services struct {
	Cart           cartcontrollers.Service
	Checkout       controllers.CheckoutService
	Orders         ordercontrollers.Service
	Payouts        payoutcontrollers.Service
	Earnings       payoutcontrollers.EarningsService
	PlatformConfig controllers.PlatformConfigService
	Notifications  notifications.Service
	StripeWebhook  webhookcontrollers.StripeWebhookService
	StripeSigner   webhookcontrollers.StripeSigner
	StripeGuard    webhookcontrollers.StripeWebhookGuard
}

// Infra carries the shared clients used by middleware and health checks.
type Infra struct {
	DB          db.Pinger
	Redis       db.Pinger
	Idempotency middleware.IdempotencyStore
	Metrics     prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.DB, infra.Redis))
	})
	if infra.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(infra.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(svc.StripeWebhook, svc.StripeSigner, svc.StripeGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(infra.Idempotency, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleBuyer))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(svc.Cart, logg))
				r.Post("/items", cartcontrollers.CartAddItem(svc.Cart, logg))
				r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(svc.Cart, logg))
				r.Post("/promotion", cartcontrollers.CartApplyPromotion(svc.Cart, logg))
				r.Delete("/promotion", cartcontrollers.CartRemovePromotion(svc.Cart, logg))
			})
			r.Route("/checkout", func(r chi.Router) {
				r.Post("/intent", controllers.CheckoutIntent(svc.Checkout, logg))
				r.Post("/confirm", controllers.CheckoutConfirm(svc.Checkout, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(svc.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(svc.Orders, logg))
			})
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleSeller))
			r.Get("/earnings", payoutcontrollers.SellerEarnings(svc.Earnings, logg))
			r.Get("/dashboard", payoutcontrollers.SellerDashboard(svc.Payouts, logg))
			r.Get("/payouts", payoutcontrollers.SellerPayouts(svc.Payouts, logg))
			r.Post("/payouts", payoutcontrollers.SellerRequestPayout(svc.Payouts, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svc.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
		r.Use(middleware.Idempotency(infra.Idempotency, logg))

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", payoutcontrollers.AdminList(svc.Payouts, logg))
			r.Post("/bulk-approve", payoutcontrollers.AdminBulkApprove(svc.Payouts, logg))
			r.Route("/{payoutId}", func(r chi.Router) {
				r.Get("/", payoutcontrollers.AdminGet(svc.Payouts, logg))
				r.Post("/approve", payoutcontrollers.AdminApprove(svc.Payouts, logg))
				r.Post("/reject", payoutcontrollers.AdminReject(svc.Payouts, logg))
				r.Post("/hold", payoutcontrollers.AdminHold(svc.Payouts, logg))
				r.Post("/release", payoutcontrollers.AdminRelease(svc.Payouts, logg))
				r.Post("/processing", payoutcontrollers.AdminStartProcessing(svc.Payouts, logg))
				r.Post("/complete", payoutcontrollers.AdminComplete(svc.Payouts, logg))
			})
		})
		r.Get("/sellers/{sellerId}/earnings", payoutcontrollers.AdminSellerEarnings(svc.Earnings, logg))
		r.Route("/platform-config", func(r chi.Router) {
			r.Get("/", controllers.PlatformConfigGet(svc.PlatformConfig, logg))
			r.Patch("/", controllers.PlatformConfigUpdate(svc.PlatformConfig, logg))
			r.Post("/reset", controllers.PlatformConfigReset(svc.PlatformConfig, logg))
		})
		r.Post("/orders/{orderId}/refund", ordercontrollers.AdminRefund(svc.Orders, logg))
	})

	return r
}
