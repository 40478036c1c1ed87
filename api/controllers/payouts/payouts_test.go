package payouts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/vaultmart-backend/api/middleware"
	"github.com/angelmondragon/vaultmart-backend/internal/earnings"
	payoutsvc "github.com/angelmondragon/vaultmart-backend/internal/payouts"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/pagination"
)

type stubService struct {
	err error

	requestInput payoutsvc.RequestInput
	listFilters  payoutsvc.ListFilters
	listParams   pagination.Params
	getSeller    *uuid.UUID
	lastPayout   uuid.UUID
	lastAdmin    uuid.UUID
	lastReason   string
	lastNotes    *string
	lastTxID     *string
	bulkIDs      []uuid.UUID
	bulkResults  []payoutsvc.BulkResult
	called       string
}

func (s *stubService) payout(id uuid.UUID, status enums.PayoutStatus) (*models.Payout, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Payout{ID: id, Status: status}, nil
}

func (s *stubService) Request(ctx context.Context, input payoutsvc.RequestInput) (*models.Payout, error) {
	s.called = "request"
	s.requestInput = input
	return s.payout(uuid.New(), enums.PayoutStatusPending)
}

func (s *stubService) List(ctx context.Context, filters payoutsvc.ListFilters, params pagination.Params) (*payoutsvc.PayoutList, error) {
	s.called = "list"
	s.listFilters = filters
	s.listParams = params
	if s.err != nil {
		return nil, s.err
	}
	return &payoutsvc.PayoutList{Payouts: []models.Payout{}}, nil
}

func (s *stubService) Get(ctx context.Context, payoutID uuid.UUID, sellerID *uuid.UUID) (*models.Payout, error) {
	s.called = "get"
	s.lastPayout = payoutID
	s.getSeller = sellerID
	return s.payout(payoutID, enums.PayoutStatusPending)
}

func (s *stubService) SellerDashboard(ctx context.Context, sellerID uuid.UUID) (*payoutsvc.Dashboard, error) {
	s.called = "dashboard"
	if s.err != nil {
		return nil, s.err
	}
	return &payoutsvc.Dashboard{Earnings: earnings.Snapshot{SellerID: sellerID}}, nil
}

func (s *stubService) Approve(ctx context.Context, payoutID, adminID uuid.UUID, notes *string) (*models.Payout, error) {
	s.called, s.lastPayout, s.lastAdmin, s.lastNotes = "approve", payoutID, adminID, notes
	return s.payout(payoutID, enums.PayoutStatusApproved)
}

func (s *stubService) Reject(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*models.Payout, error) {
	s.called, s.lastPayout, s.lastAdmin, s.lastReason = "reject", payoutID, adminID, reason
	return s.payout(payoutID, enums.PayoutStatusCancelled)
}

func (s *stubService) Hold(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*models.Payout, error) {
	s.called, s.lastPayout, s.lastAdmin, s.lastReason = "hold", payoutID, adminID, reason
	return s.payout(payoutID, enums.PayoutStatusFailed)
}

func (s *stubService) Release(ctx context.Context, payoutID, adminID uuid.UUID) (*models.Payout, error) {
	s.called, s.lastPayout, s.lastAdmin = "release", payoutID, adminID
	return s.payout(payoutID, enums.PayoutStatusPending)
}

func (s *stubService) StartProcessing(ctx context.Context, payoutID, adminID uuid.UUID) (*models.Payout, error) {
	s.called, s.lastPayout, s.lastAdmin = "processing", payoutID, adminID
	return s.payout(payoutID, enums.PayoutStatusProcessing)
}

func (s *stubService) Complete(ctx context.Context, payoutID, adminID uuid.UUID, transactionID *string) (*models.Payout, error) {
	s.called, s.lastPayout, s.lastAdmin, s.lastTxID = "complete", payoutID, adminID, transactionID
	return s.payout(payoutID, enums.PayoutStatusCompleted)
}

func (s *stubService) BulkApprove(ctx context.Context, adminID uuid.UUID, payoutIDs []uuid.UUID) ([]payoutsvc.BulkResult, error) {
	s.called, s.lastAdmin, s.bulkIDs = "bulk", adminID, payoutIDs
	return s.bulkResults, s.err
}

type stubEarnings struct {
	sellerID uuid.UUID
	from, to *time.Time
}

func (s *stubEarnings) ComputeEarnings(ctx context.Context, sellerID uuid.UUID, from, to *time.Time) (earnings.Snapshot, error) {
	s.sellerID, s.from, s.to = sellerID, from, to
	return earnings.Snapshot{SellerID: sellerID, AvailableCents: 9000, Eligible: true}, nil
}

func newRequest(method, target, body string, userID uuid.UUID, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := middleware.WithUserID(req.Context(), userID.String())
	if len(params) > 0 {
		routeCtx := chi.NewRouteContext()
		for k, v := range params {
			routeCtx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

func TestSellerRequestPayoutUsesCallerAsSeller(t *testing.T) {
	sellerID := uuid.New()
	svc := &stubService{}

	req := newRequest(http.MethodPost, "/api/v1/seller/payouts", `{"amount_cents":7500,"notes":"  monthly  "}`, sellerID, nil)
	resp := httptest.NewRecorder()
	SellerRequestPayout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.requestInput.SellerID != sellerID {
		t.Fatalf("expected seller %s got %s", sellerID, svc.requestInput.SellerID)
	}
	if svc.requestInput.AmountCents == nil || *svc.requestInput.AmountCents != 7500 {
		t.Fatalf("expected amount 7500 got %v", svc.requestInput.AmountCents)
	}
	if svc.requestInput.Notes == nil || *svc.requestInput.Notes != "monthly" {
		t.Fatalf("expected trimmed notes got %v", svc.requestInput.Notes)
	}
}

func TestSellerRequestPayoutRejectsNonPositiveAmount(t *testing.T) {
	svc := &stubService{}

	req := newRequest(http.MethodPost, "/api/v1/seller/payouts", `{"amount_cents":0}`, uuid.New(), nil)
	resp := httptest.NewRecorder()
	SellerRequestPayout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.called != "" {
		t.Fatalf("service should not be called, got %q", svc.called)
	}
}

func TestSellerRequestPayoutSurfacesIneligibility(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeIneligible, "minimum payout not met").
		WithDetails(map[string]any{"reason": "below_minimum"})}

	req := newRequest(http.MethodPost, "/api/v1/seller/payouts", "", uuid.New(), nil)
	resp := httptest.NewRecorder()
	SellerRequestPayout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "below_minimum") {
		t.Fatalf("expected reason in body, got %s", resp.Body.String())
	}
}

func TestSellerPayoutsScopesToCaller(t *testing.T) {
	sellerID := uuid.New()
	svc := &stubService{}

	req := newRequest(http.MethodGet, "/api/v1/seller/payouts?status=approved&limit=5", "", sellerID, nil)
	resp := httptest.NewRecorder()
	SellerPayouts(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.listFilters.SellerID == nil || *svc.listFilters.SellerID != sellerID {
		t.Fatalf("expected seller filter %s", sellerID)
	}
	if svc.listFilters.Status == nil || *svc.listFilters.Status != enums.PayoutStatusApproved {
		t.Fatalf("expected approved status filter, got %v", svc.listFilters.Status)
	}
	if svc.listParams.Limit != 5 {
		t.Fatalf("expected limit 5 got %d", svc.listParams.Limit)
	}
}

func TestSellerPayoutsRejectsUnknownStatus(t *testing.T) {
	req := newRequest(http.MethodGet, "/api/v1/seller/payouts?status=paid", "", uuid.New(), nil)
	resp := httptest.NewRecorder()
	SellerPayouts(&stubService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSellerEarningsParsesWindow(t *testing.T) {
	sellerID := uuid.New()
	svc := &stubEarnings{}

	req := newRequest(http.MethodGet, "/api/v1/seller/earnings?from=2026-01-01&to=2026-01-31", "", sellerID, nil)
	resp := httptest.NewRecorder()
	SellerEarnings(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.sellerID != sellerID {
		t.Fatalf("expected seller %s got %s", sellerID, svc.sellerID)
	}
	if svc.from == nil || !svc.from.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from %v", svc.from)
	}
	if svc.to == nil || svc.to.Day() != 31 || svc.to.Hour() != 23 {
		t.Fatalf("expected end of day on the 31st, got %v", svc.to)
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["available_for_payout_cents"] != float64(9000) {
		t.Fatalf("unexpected snapshot %v", envelope.Data)
	}
}

func TestSellerDashboardRequiresIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/seller/dashboard", nil)
	resp := httptest.NewRecorder()
	SellerDashboard(&stubService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminListAppliesFilters(t *testing.T) {
	sellerID := uuid.New()
	svc := &stubService{}

	req := newRequest(http.MethodGet, "/api/admin/v1/payouts?status=Pending&seller_id="+sellerID.String()+"&from=2026-03-01", "", uuid.New(), nil)
	resp := httptest.NewRecorder()
	AdminList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.listFilters.SellerID == nil || *svc.listFilters.SellerID != sellerID {
		t.Fatalf("expected seller filter")
	}
	if svc.listFilters.From == nil || svc.listFilters.To != nil {
		t.Fatalf("expected only a lower bound, got %v %v", svc.listFilters.From, svc.listFilters.To)
	}
	if svc.listFilters.Status == nil || *svc.listFilters.Status != enums.PayoutStatusPending {
		t.Fatalf("expected pending status filter, got %v", svc.listFilters.Status)
	}
}

func TestAdminGetIsNotSellerScoped(t *testing.T) {
	payoutID := uuid.New()
	svc := &stubService{}

	req := newRequest(http.MethodGet, "/api/admin/v1/payouts/"+payoutID.String(), "", uuid.New(), map[string]string{"payoutId": payoutID.String()})
	resp := httptest.NewRecorder()
	AdminGet(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastPayout != payoutID || svc.getSeller != nil {
		t.Fatalf("expected unscoped lookup of %s", payoutID)
	}
}

func TestAdminTransitions(t *testing.T) {
	tests := []struct {
		name    string
		handler func(Service) http.HandlerFunc
		body    string
		called  string
		status  enums.PayoutStatus
	}{
		{name: "approve", handler: func(s Service) http.HandlerFunc { return AdminApprove(s, nil) }, body: `{"notes":"ok"}`, called: "approve", status: enums.PayoutStatusApproved},
		{name: "reject", handler: func(s Service) http.HandlerFunc { return AdminReject(s, nil) }, body: `{"reason":" fraud "}`, called: "reject", status: enums.PayoutStatusCancelled},
		{name: "hold", handler: func(s Service) http.HandlerFunc { return AdminHold(s, nil) }, body: `{}`, called: "hold", status: enums.PayoutStatusFailed},
		{name: "release", handler: func(s Service) http.HandlerFunc { return AdminRelease(s, nil) }, called: "release", status: enums.PayoutStatusPending},
		{name: "processing", handler: func(s Service) http.HandlerFunc { return AdminStartProcessing(s, nil) }, called: "processing", status: enums.PayoutStatusProcessing},
		{name: "complete", handler: func(s Service) http.HandlerFunc { return AdminComplete(s, nil) }, body: `{"transaction_id":"tr_1"}`, called: "complete", status: enums.PayoutStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adminID := uuid.New()
			payoutID := uuid.New()
			svc := &stubService{}

			req := newRequest(http.MethodPost, "/api/admin/v1/payouts/"+payoutID.String()+"/"+tt.name, tt.body, adminID, map[string]string{"payoutId": payoutID.String()})
			resp := httptest.NewRecorder()
			tt.handler(svc).ServeHTTP(resp, req)

			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
			}
			if svc.called != tt.called {
				t.Fatalf("expected %s got %s", tt.called, svc.called)
			}
			if svc.lastPayout != payoutID || svc.lastAdmin != adminID {
				t.Fatalf("expected payout %s by admin %s", payoutID, adminID)
			}
			var envelope struct {
				Data models.Payout `json:"data"`
			}
			if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if envelope.Data.Status != tt.status {
				t.Fatalf("expected status %s got %s", tt.status, envelope.Data.Status)
			}
		})
	}
}

func TestAdminRejectTrimsReason(t *testing.T) {
	payoutID := uuid.New()
	svc := &stubService{}

	req := newRequest(http.MethodPost, "/", `{"reason":"  duplicate account  "}`, uuid.New(), map[string]string{"payoutId": payoutID.String()})
	resp := httptest.NewRecorder()
	AdminReject(svc, nil).ServeHTTP(resp, req)

	if svc.lastReason != "duplicate account" {
		t.Fatalf("expected trimmed reason got %q", svc.lastReason)
	}
}

func TestAdminCompleteWithoutTransactionID(t *testing.T) {
	payoutID := uuid.New()
	svc := &stubService{}

	req := newRequest(http.MethodPost, "/", `{"transaction_id":"   "}`, uuid.New(), map[string]string{"payoutId": payoutID.String()})
	resp := httptest.NewRecorder()
	AdminComplete(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastTxID != nil {
		t.Fatalf("blank transaction id should be dropped, got %q", *svc.lastTxID)
	}
}

func TestAdminTransitionStateConflict(t *testing.T) {
	payoutID := uuid.New()
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "payout cannot move from completed to approved")}

	req := newRequest(http.MethodPost, "/", "", uuid.New(), map[string]string{"payoutId": payoutID.String()})
	resp := httptest.NewRecorder()
	AdminApprove(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestAdminTransitionRejectsBadID(t *testing.T) {
	svc := &stubService{}

	req := newRequest(http.MethodPost, "/", "", uuid.New(), map[string]string{"payoutId": "nope"})
	resp := httptest.NewRecorder()
	AdminRelease(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.called != "" {
		t.Fatalf("service should not be called")
	}
}

func TestAdminBulkApproveReportsCounts(t *testing.T) {
	ok, bad := uuid.New(), uuid.New()
	svc := &stubService{bulkResults: []payoutsvc.BulkResult{
		{PayoutID: ok, Success: true},
		{PayoutID: bad, Success: false, Error: "payout not pending"},
	}}

	body := `{"payout_ids":["` + ok.String() + `","` + bad.String() + `"]}`
	req := newRequest(http.MethodPost, "/api/admin/v1/payouts/bulk-approve", body, uuid.New(), nil)
	resp := httptest.NewRecorder()
	AdminBulkApprove(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.bulkIDs) != 2 {
		t.Fatalf("expected 2 ids got %d", len(svc.bulkIDs))
	}
	var envelope struct {
		Data struct {
			Approved int `json:"approved"`
			Failed   int `json:"failed"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Approved != 1 || envelope.Data.Failed != 1 {
		t.Fatalf("unexpected counts %+v", envelope.Data)
	}
}

func TestAdminBulkApproveRequiresIDs(t *testing.T) {
	svc := &stubService{}

	req := newRequest(http.MethodPost, "/api/admin/v1/payouts/bulk-approve", `{"payout_ids":[]}`, uuid.New(), nil)
	resp := httptest.NewRecorder()
	AdminBulkApprove(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminSellerEarningsUsesRouteSeller(t *testing.T) {
	sellerID := uuid.New()
	svc := &stubEarnings{}

	req := newRequest(http.MethodGet, "/", "", uuid.New(), map[string]string{"sellerId": sellerID.String()})
	resp := httptest.NewRecorder()
	AdminSellerEarnings(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.sellerID != sellerID {
		t.Fatalf("expected seller %s got %s", sellerID, svc.sellerID)
	}
}
