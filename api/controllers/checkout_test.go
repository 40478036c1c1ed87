package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/vaultmart-backend/api/middleware"
	"github.com/angelmondragon/vaultmart-backend/internal/checkout"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	pkgstripe "github.com/angelmondragon/vaultmart-backend/pkg/stripe"
)

type stubCheckoutService struct {
	intent      *checkout.IntentResult
	confirm     *checkout.ConfirmResult
	err         error
	lastIntent  string
	lastBuyerID uuid.UUID
}

func (s *stubCheckoutService) CreateIntent(ctx context.Context, buyerID uuid.UUID) (*checkout.IntentResult, error) {
	s.lastBuyerID = buyerID
	return s.intent, s.err
}

func (s *stubCheckoutService) Confirm(ctx context.Context, buyerID uuid.UUID, processorIntentID string) (*checkout.ConfirmResult, error) {
	s.lastBuyerID = buyerID
	s.lastIntent = processorIntentID
	return s.confirm, s.err
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestCheckoutIntentReturnsClientSecret(t *testing.T) {
	buyerID := uuid.New()
	svc := &stubCheckoutService{intent: &checkout.IntentResult{
		ProcessorIntentID: "pi_123",
		ClientSecret:      "pi_123_secret",
		AmountCents:       4500,
		Currency:          "usd",
	}}

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/intent", nil), buyerID)
	resp := httptest.NewRecorder()
	CheckoutIntent(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastBuyerID != buyerID {
		t.Fatalf("expected buyer %s got %s", buyerID, svc.lastBuyerID)
	}
	var envelope struct {
		Data checkout.IntentResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ClientSecret != "pi_123_secret" {
		t.Fatalf("unexpected client secret %q", envelope.Data.ClientSecret)
	}
}

func TestCheckoutIntentFreeCartIsCreated(t *testing.T) {
	svc := &stubCheckoutService{intent: &checkout.IntentResult{Free: true, Order: &models.Purchase{ID: uuid.New()}}}

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/intent", nil), uuid.New())
	resp := httptest.NewRecorder()
	CheckoutIntent(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestCheckoutConfirmPendingIsAccepted(t *testing.T) {
	pending := pkgerrors.New(pkgerrors.CodeConflict, "payment not yet confirmed").
		WithDetails(map[string]any{"reason": "payment_pending", "status": "processing"})
	svc := &stubCheckoutService{err: pending}

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", strings.NewReader(`{"payment_intent_id":"pi_9"}`)), uuid.New())
	resp := httptest.NewRecorder()
	CheckoutConfirm(svc, nil).ServeHTTP(resp, req)

	if !checkout.IsPaymentPending(pending) {
		t.Fatal("fixture should read as pending")
	}
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d (%s)", resp.Code, resp.Body.String())
	}
	if svc.lastIntent != "pi_9" {
		t.Fatalf("expected intent pi_9 got %q", svc.lastIntent)
	}
}

func TestCheckoutConfirmSettled(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCheckoutService{confirm: &checkout.ConfirmResult{
		Status: pkgstripe.IntentStatusSucceeded,
		Order:  &models.Purchase{ID: orderID},
	}}

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", strings.NewReader(`{"payment_intent_id":"pi_1"}`)), uuid.New())
	resp := httptest.NewRecorder()
	CheckoutConfirm(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Status string `json:"status"`
			Order  struct {
				ID uuid.UUID `json:"id"`
			} `json:"order"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Order.ID != orderID {
		t.Fatalf("expected order %s got %s", orderID, envelope.Data.Order.ID)
	}
}

func TestCheckoutConfirmRequiresIntentID(t *testing.T) {
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", strings.NewReader(`{}`)), uuid.New())
	resp := httptest.NewRecorder()
	CheckoutConfirm(&stubCheckoutService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
