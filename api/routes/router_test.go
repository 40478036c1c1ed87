package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	cartsvc "github.com/angelmondragon/vaultmart-backend/internal/cart"
	"github.com/angelmondragon/vaultmart-backend/internal/platformconfig"
	pkgAuth "github.com/angelmondragon/vaultmart-backend/pkg/auth"
	"github.com/angelmondragon/vaultmart-backend/pkg/config"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCartService struct{}

func (stubCartService) Get(ctx context.Context, buyerID uuid.UUID) (*cartsvc.View, error) {
	return &cartsvc.View{BuyerID: buyerID}, nil
}

func (stubCartService) AddItem(ctx context.Context, buyerID, productID uuid.UUID) (*cartsvc.View, error) {
	return &cartsvc.View{BuyerID: buyerID}, nil
}

func (stubCartService) RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) (*cartsvc.View, error) {
	return &cartsvc.View{BuyerID: buyerID}, nil
}

func (stubCartService) ApplyPromotion(ctx context.Context, buyerID uuid.UUID, code string) (*cartsvc.View, error) {
	return &cartsvc.View{BuyerID: buyerID}, nil
}

func (stubCartService) RemovePromotion(ctx context.Context, buyerID uuid.UUID) (*cartsvc.View, error) {
	return &cartsvc.View{BuyerID: buyerID}, nil
}

type stubPlatformConfig struct{}

func (stubPlatformConfig) GetActive(ctx context.Context) (models.PlatformConfig, error) {
	return models.PlatformConfig{ID: uuid.New(), IsActive: true}, nil
}

func (stubPlatformConfig) Update(ctx context.Context, adminID uuid.UUID, input platformconfig.UpdateInput) (models.PlatformConfig, error) {
	return models.PlatformConfig{}, nil
}

func (stubPlatformConfig) Reset(ctx context.Context, adminID uuid.UUID) (models.PlatformConfig, error) {
	return models.PlatformConfig{}, nil
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	switch v := value.(type) {
	case string:
		m.data[key] = v
	case []byte:
		m.data[key] = string(v)
	}
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "vm:idempotency:" + scope + ":" + id
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret: "secret",
			Issuer: "issuer",
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(cfg, logg, Infra{
		DB:          stubPinger{},
		Redis:       stubPinger{},
		Idempotency: &memoryStore{},
		Metrics:     prometheus.NewRegistry(),
	}, Services{
		Cart:           stubCartService{},
		PlatformConfig: stubPlatformConfig{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), time.Hour, pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestBuyerRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := serve(router, http.MethodGet, "/api/v1/cart", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestBuyerRoutesRequireBuyerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	resp := serve(router, http.MethodGet, "/api/v1/cart", buildToken(t, cfg, enums.RoleSeller))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for seller got %d", resp.Code)
	}

	resp = serve(router, http.MethodGet, "/api/v1/cart", buildToken(t, cfg, enums.RoleBuyer))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for buyer got %d", resp.Code)
	}
}

func TestSellerRoutesRequireSellerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	resp := serve(router, http.MethodGet, "/api/v1/seller/dashboard", buildToken(t, cfg, enums.RoleBuyer))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	resp := serve(router, http.MethodGet, "/api/admin/v1/platform-config", buildToken(t, cfg, enums.RoleSeller))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	resp = serve(router, http.MethodGet, "/api/admin/v1/platform-config", buildToken(t, cfg, enums.RoleAdmin))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestNotificationsOpenToAnyRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	for _, role := range []enums.Role{enums.RoleBuyer, enums.RoleSeller, enums.RoleAdmin} {
		resp := serve(router, http.MethodGet, "/api/v1/notifications", buildToken(t, cfg, role))
		if resp.Code == http.StatusUnauthorized || resp.Code == http.StatusForbidden {
			t.Fatalf("role %s should reach notifications, got %d", role, resp.Code)
		}
	}
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	resp := serve(router, http.MethodPost, "/api/v1/checkout/intent", buildToken(t, cfg, enums.RoleBuyer))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Idempotency-Key") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestWebhookRouteSkipsAuth(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := serve(router, http.MethodPost, "/api/v1/webhooks/stripe", "")
	if resp.Code == http.StatusUnauthorized {
		t.Fatalf("webhook route must not require a JWT")
	}
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp := serve(router, http.MethodGet, path, "")
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}
