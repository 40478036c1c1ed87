package sellers

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/vaultmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCountersAndPayoutHistory(t *testing.T) {
	conn := dbtest.Open(t)
	sellerID := uuid.New()
	require.NoError(t, conn.Create(&models.SellerProfile{
		SellerID:         sellerID,
		Status:           enums.SellerStatusApproved,
		CommissionRate:   decimal.NewNullDecimal(decimal.NewFromInt(70)),
		CommissionStatus: enums.CommissionStatusAccepted,
	}).Error)

	repo := NewRepository(conn)
	ctx := context.Background()
	require.NoError(t, repo.IncrementSales(ctx, sellerID, 2, 1400))
	require.NoError(t, repo.IncrementSales(ctx, sellerID, 1, 700))

	paidAt := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordPayout(ctx, sellerID, 5000, paidAt))

	profile, err := repo.FindByID(ctx, sellerID)
	require.NoError(t, err)
	require.Equal(t, int64(3), profile.TotalSalesCount)
	require.Equal(t, int64(2100), profile.TotalEarningsCents)
	require.Equal(t, int64(5000), profile.LifetimePayoutCents)
	require.Equal(t, int64(1), profile.PayoutCount)
	require.NotNil(t, profile.LastPayoutAt)
	require.True(t, profile.LastPayoutAt.Equal(paidAt))
	require.True(t, profile.HasAcceptedCommission())

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)
}
