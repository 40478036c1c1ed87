package wiring

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vaultmart-backend/pkg/config"
	pkgdb "github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/dbtest"
	pkgstripe "github.com/angelmondragon/vaultmart-backend/pkg/stripe"
)

type stubPayments struct{}

func (stubPayments) CreatePaymentIntent(ctx context.Context, input pkgstripe.CreateIntentInput) (*pkgstripe.Intent, error) {
	return &pkgstripe.Intent{}, nil
}

func (stubPayments) GetPaymentIntent(ctx context.Context, id string) (*pkgstripe.Intent, error) {
	return &pkgstripe.Intent{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Settlement: config.SettlementConfig{Currency: "usd"},
		Platform: config.PlatformDefaultsConfig{
			FeePercent:         "10",
			MinimumPayoutCents: 5000,
			HoldPeriodDays:     14,
			MaximumPayoutCents: 1000000,
			Currency:           "USD",
		},
	}
}

func TestBuildWiresServices(t *testing.T) {
	conn := dbtest.Open(t)
	m, err := Build(Params{
		Config:     testConfig(),
		DB:         pkgdb.NewFromConn(conn),
		Payments:   stubPayments{},
		Registerer: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	require.NotNil(t, m.Checkout)
	require.NotNil(t, m.Payouts)

	ctx := context.Background()
	active, err := m.PlatformConfig.GetActive(ctx)
	require.NoError(t, err)
	require.True(t, active.IsActive)

	view, err := m.Cart.Get(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, view.Items)
}

func TestBuildRequiresDependencies(t *testing.T) {
	_, err := Build(Params{Config: testConfig()})
	require.Error(t, err)

	_, err = Build(Params{Config: testConfig(), DB: pkgdb.NewFromConn(dbtest.Open(t))})
	require.Error(t, err)
}
