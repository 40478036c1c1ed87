package earnings

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/vaultmart-backend/internal/sellers"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type staticConfig struct {
	cfg models.PlatformConfig
}

func (s staticConfig) GetActive(ctx context.Context) (models.PlatformConfig, error) {
	return s.cfg, nil
}

var now = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func defaultConfig() models.PlatformConfig {
	return models.PlatformConfig{
		ID:                    uuid.New(),
		PlatformFeePercentage: decimal.NewFromInt(10),
		MinimumPayoutCents:    5000,
		ProcessingFeeCents:    0,
		HoldPeriodDays:        14,
		MaximumPayoutCents:    1_000_000,
		Currency:              "USD",
		IsActive:              true,
	}
}

func newCalculator(t *testing.T, conn *gorm.DB, cfg models.PlatformConfig) *Calculator {
	t.Helper()
	calc, err := NewCalculator(CalculatorParams{
		Repository: NewRepository(conn),
		Sellers:    sellers.NewRepository(conn),
		Config:     staticConfig{cfg: cfg},
	})
	require.NoError(t, err)
	calc.now = func() time.Time { return now }
	return calc
}

func seedSeller(t *testing.T, conn *gorm.DB, commission string, approvedAt *time.Time) uuid.UUID {
	t.Helper()
	profile := models.SellerProfile{
		SellerID:         uuid.New(),
		Status:           enums.SellerStatusApproved,
		ApprovedAt:       approvedAt,
		CommissionStatus: enums.CommissionStatusAccepted,
	}
	if commission != "" {
		profile.CommissionRate = decimal.NewNullDecimal(decimal.RequireFromString(commission))
	} else {
		profile.CommissionStatus = enums.CommissionStatusPending
	}
	require.NoError(t, conn.Create(&profile).Error)
	return profile.SellerID
}

func seedOrder(t *testing.T, conn *gorm.DB, status enums.OrderStatus, completedAt time.Time, lines map[uuid.UUID][]int64) uuid.UUID {
	t.Helper()
	paymentStatus := enums.PaymentStatusCompleted
	if status == enums.OrderStatusRefunded {
		paymentStatus = enums.PaymentStatusRefunded
	}
	order := models.Purchase{
		ID:               uuid.New(),
		BuyerID:          uuid.New(),
		Currency:         "usd",
		PaymentStatus:    paymentStatus,
		OrderStatus:      status,
		PaymentMethod:    enums.PaymentMethodStripe,
		PaymentReference: "pi_" + uuid.NewString(),
		PurchasedAt:      completedAt,
		CompletedAt:      &completedAt,
	}
	require.NoError(t, conn.Omit("Items").Create(&order).Error)
	position := 0
	for sellerID, prices := range lines {
		for _, price := range prices {
			item := models.PurchaseItem{
				ID:             uuid.New(),
				PurchaseID:     order.ID,
				Position:       position,
				ProductID:      uuid.New(),
				SellerID:       sellerID,
				Title:          "asset",
				UnitPriceCents: price,
			}
			require.NoError(t, conn.Create(&item).Error)
			position++
		}
	}
	return order.ID
}

func seedPayout(t *testing.T, conn *gorm.DB, sellerID uuid.UUID, status enums.PayoutStatus, amount int64) {
	t.Helper()
	require.NoError(t, conn.Create(&models.Payout{
		ID:          uuid.New(),
		SellerID:    sellerID,
		AmountCents: amount,
		GrossCents:  amount,
		Currency:    "USD",
		Method:      enums.PayoutMethodPayPal,
		Details:     types.PayoutDetails{Method: enums.PayoutMethodPayPal, PayPal: &types.PayPalDetails{Email: "s@example.com"}},
		Status:      status,
		RequestedAt: now,
	}).Error)
}

func TestComputeEarningsAppliesCommissionAndFees(t *testing.T) {
	conn := dbtest.Open(t)
	approved := now.AddDate(0, -2, 0)
	sellerID := seedSeller(t, conn, "80", &approved)
	other := seedSeller(t, conn, "70", &approved)
	first := seedOrder(t, conn, enums.OrderStatusCompleted, now.AddDate(0, 0, -10), map[uuid.UUID][]int64{sellerID: {30000}, other: {9900}})
	second := seedOrder(t, conn, enums.OrderStatusCompleted, now.AddDate(0, 0, -3), map[uuid.UUID][]int64{sellerID: {15000, 5000}})
	seedOrder(t, conn, enums.OrderStatusRefunded, now.AddDate(0, 0, -2), map[uuid.UUID][]int64{sellerID: {70000}})

	snap, err := newCalculator(t, conn, defaultConfig()).ComputeEarnings(context.Background(), sellerID, nil, nil)
	require.NoError(t, err)
	require.Equal(t, int64(50000), snap.TotalSalesCents)
	require.Equal(t, int64(40000), snap.GrossCents)
	require.Equal(t, int64(4000), snap.PlatformFeeCents)
	require.Equal(t, int64(36000), snap.NetCents)
	require.Equal(t, int64(36000), snap.AvailableCents)
	require.True(t, snap.Eligible)
	require.False(t, snap.OnHold)
	require.True(t, snap.CanRequestPayout())
	require.Equal(t, "USD", snap.Currency)
	require.ElementsMatch(t, []uuid.UUID{first, second}, snap.OrderIDs)
}

func TestComputeEarningsSubtractsClaimedPayouts(t *testing.T) {
	conn := dbtest.Open(t)
	approved := now.AddDate(0, -2, 0)
	sellerID := seedSeller(t, conn, "80", &approved)
	seedOrder(t, conn, enums.OrderStatusCompleted, now.AddDate(0, 0, -10), map[uuid.UUID][]int64{sellerID: {50000}})
	seedPayout(t, conn, sellerID, enums.PayoutStatusCompleted, 20000)
	seedPayout(t, conn, sellerID, enums.PayoutStatusCancelled, 9000)

	cfg := defaultConfig()
	cfg.ProcessingFeeCents = 250
	snap, err := newCalculator(t, conn, cfg).ComputeEarnings(context.Background(), sellerID, nil, nil)
	require.NoError(t, err)
	require.Equal(t, int64(35750), snap.NetCents)
	require.Equal(t, int64(20000), snap.PaidOutCents)
	require.Equal(t, int64(15750), snap.AvailableCents)
	require.True(t, snap.Eligible)

	seedPayout(t, conn, sellerID, enums.PayoutStatusApproved, 15000)
	snap, err = newCalculator(t, conn, cfg).ComputeEarnings(context.Background(), sellerID, nil, nil)
	require.NoError(t, err)
	require.Equal(t, int64(750), snap.AvailableCents)
	require.False(t, snap.Eligible)
}

func TestComputeEarningsNeverNegative(t *testing.T) {
	conn := dbtest.Open(t)
	approved := now.AddDate(0, -2, 0)
	sellerID := seedSeller(t, conn, "50", &approved)
	seedOrder(t, conn, enums.OrderStatusCompleted, now.AddDate(0, 0, -1), map[uuid.UUID][]int64{sellerID: {100}})
	seedPayout(t, conn, sellerID, enums.PayoutStatusCompleted, 5000)

	cfg := defaultConfig()
	cfg.ProcessingFeeCents = 500
	snap, err := newCalculator(t, conn, cfg).ComputeEarnings(context.Background(), sellerID, nil, nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), snap.NetCents)
	require.Equal(t, int64(0), snap.AvailableCents)
	require.False(t, snap.Eligible)
}

func TestComputeEarningsWindow(t *testing.T) {
	conn := dbtest.Open(t)
	approved := now.AddDate(0, -6, 0)
	sellerID := seedSeller(t, conn, "100", &approved)
	seedOrder(t, conn, enums.OrderStatusCompleted, now.AddDate(0, -2, 0), map[uuid.UUID][]int64{sellerID: {1000}})
	inside := seedOrder(t, conn, enums.OrderStatusCompleted, now.AddDate(0, 0, -7), map[uuid.UUID][]int64{sellerID: {2000}})

	from := now.AddDate(0, -1, 0)
	to := now
	calc := newCalculator(t, conn, defaultConfig())
	snap, err := calc.ComputeEarnings(context.Background(), sellerID, &from, &to)
	require.NoError(t, err)
	require.Equal(t, int64(2000), snap.TotalSalesCents)
	require.Equal(t, []uuid.UUID{inside}, snap.OrderIDs)

	_, err = calc.ComputeEarnings(context.Background(), sellerID, &to, &from)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestComputeEarningsHoldPeriod(t *testing.T) {
	conn := dbtest.Open(t)
	recent := now.AddDate(0, 0, -5)
	sellerID := seedSeller(t, conn, "80", &recent)
	seedOrder(t, conn, enums.OrderStatusCompleted, now.AddDate(0, 0, -1), map[uuid.UUID][]int64{sellerID: {50000}})

	snap, err := newCalculator(t, conn, defaultConfig()).ComputeEarnings(context.Background(), sellerID, nil, nil)
	require.NoError(t, err)
	require.True(t, snap.Eligible)
	require.True(t, snap.OnHold)
	require.False(t, snap.CanRequestPayout())
	require.NotNil(t, snap.HoldUntil)
	require.True(t, snap.HoldUntil.Equal(recent.AddDate(0, 0, 14)))

	unapproved := seedSeller(t, conn, "80", nil)
	snap, err = newCalculator(t, conn, defaultConfig()).ComputeEarnings(context.Background(), unapproved, nil, nil)
	require.NoError(t, err)
	require.True(t, snap.OnHold)
	require.Nil(t, snap.HoldUntil)
}

func TestComputeEarningsRequiresAcceptedCommission(t *testing.T) {
	conn := dbtest.Open(t)
	approved := now.AddDate(0, -2, 0)
	sellerID := seedSeller(t, conn, "", &approved)
	calc := newCalculator(t, conn, defaultConfig())

	_, err := calc.ComputeEarnings(context.Background(), sellerID, nil, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeIneligible))
	details, _ := pkgerrors.As(err).Details().(map[string]any)
	require.Equal(t, ReasonCommissionNotAccepted, details["reason"])

	_, err = calc.ComputeEarnings(context.Background(), uuid.New(), nil, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
