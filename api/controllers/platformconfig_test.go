package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vaultmart-backend/internal/platformconfig"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
)

type stubPlatformConfigService struct {
	active    models.PlatformConfig
	err       error
	lastAdmin uuid.UUID
	lastInput platformconfig.UpdateInput
	resets    int
}

func (s *stubPlatformConfigService) GetActive(ctx context.Context) (models.PlatformConfig, error) {
	return s.active, s.err
}

func (s *stubPlatformConfigService) Update(ctx context.Context, adminID uuid.UUID, input platformconfig.UpdateInput) (models.PlatformConfig, error) {
	s.lastAdmin = adminID
	s.lastInput = input
	if s.err != nil {
		return models.PlatformConfig{}, s.err
	}
	if input.PlatformFeePercentage != nil {
		s.active.PlatformFeePercentage = *input.PlatformFeePercentage
	}
	return s.active, nil
}

func (s *stubPlatformConfigService) Reset(ctx context.Context, adminID uuid.UUID) (models.PlatformConfig, error) {
	s.lastAdmin = adminID
	s.resets++
	return s.active, s.err
}

func TestPlatformConfigGet(t *testing.T) {
	svc := &stubPlatformConfigService{active: models.PlatformConfig{
		ID:                    uuid.New(),
		PlatformFeePercentage: decimal.RequireFromString("12.5"),
		MinimumPayoutCents:    5000,
		Currency:              "USD",
		IsActive:              true,
	}}

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/admin/v1/platform-config", nil), uuid.New())
	resp := httptest.NewRecorder()
	PlatformConfigGet(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["platform_fee_percentage"] != "12.5" {
		t.Fatalf("unexpected fee %v", envelope.Data["platform_fee_percentage"])
	}
	if envelope.Data["minimum_payout_cents"] != float64(5000) {
		t.Fatalf("unexpected minimum %v", envelope.Data["minimum_payout_cents"])
	}
}

func TestPlatformConfigUpdatePartial(t *testing.T) {
	adminID := uuid.New()
	svc := &stubPlatformConfigService{}

	body := `{"platform_fee_percentage":"15","auto_payout":true}`
	req := withUser(httptest.NewRequest(http.MethodPatch, "/api/admin/v1/platform-config", strings.NewReader(body)), adminID)
	resp := httptest.NewRecorder()
	PlatformConfigUpdate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastAdmin != adminID {
		t.Fatalf("expected admin %s got %s", adminID, svc.lastAdmin)
	}
	if svc.lastInput.PlatformFeePercentage == nil || !svc.lastInput.PlatformFeePercentage.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected fee 15 got %v", svc.lastInput.PlatformFeePercentage)
	}
	if svc.lastInput.AutoPayout == nil || !*svc.lastInput.AutoPayout {
		t.Fatalf("expected auto payout flag")
	}
	if svc.lastInput.MinimumPayoutCents != nil || svc.lastInput.Currency != nil {
		t.Fatalf("omitted fields should stay nil")
	}
}

func TestPlatformConfigUpdateRejectsUnknownField(t *testing.T) {
	svc := &stubPlatformConfigService{}

	req := withUser(httptest.NewRequest(http.MethodPatch, "/api/admin/v1/platform-config", strings.NewReader(`{"fee":"15"}`)), uuid.New())
	resp := httptest.NewRecorder()
	PlatformConfigUpdate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.lastAdmin != uuid.Nil {
		t.Fatalf("service should not be called")
	}
}

func TestPlatformConfigUpdateSurfacesValidation(t *testing.T) {
	svc := &stubPlatformConfigService{err: pkgerrors.New(pkgerrors.CodeValidation, "platform fee percentage must be between 0 and 100")}

	req := withUser(httptest.NewRequest(http.MethodPatch, "/api/admin/v1/platform-config", strings.NewReader(`{"platform_fee_percentage":"150"}`)), uuid.New())
	resp := httptest.NewRecorder()
	PlatformConfigUpdate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPlatformConfigReset(t *testing.T) {
	adminID := uuid.New()
	svc := &stubPlatformConfigService{}

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/admin/v1/platform-config/reset", nil), adminID)
	resp := httptest.NewRecorder()
	PlatformConfigReset(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.resets != 1 || svc.lastAdmin != adminID {
		t.Fatalf("expected one reset by %s", adminID)
	}
}
