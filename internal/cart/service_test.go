package cart

import (
	"context"
	"testing"

	"github.com/angelmondragon/vaultmart-backend/internal/catalog"
	"github.com/angelmondragon/vaultmart-backend/internal/promotions"
	pkgdb "github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/dbtest"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	evaluator, err := promotions.NewEvaluator(promotions.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repository:        NewRepository(conn),
		Catalog:           catalog.NewRepository(conn),
		Promotions:        evaluator,
		TransactionRunner: pkgdb.NewFromConn(conn),
	})
	require.NoError(t, err)
	return svc, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, price int64) models.Product {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		SellerID:   uuid.New(),
		Title:      "Font bundle",
		PriceCents: price,
		Status:     enums.ProductStatusPublished,
		Category:   "fonts",
	}
	require.NoError(t, conn.Create(&product).Error)
	return product
}

func seedPromo(t *testing.T, conn *gorm.DB, code string, pct int64, minOrder int64) models.Promocode {
	t.Helper()
	promo := models.Promocode{
		ID:            uuid.New(),
		Code:          code,
		OwnerType:     enums.PromotionOwnerPlatform,
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(pct),
		MinOrderCents: minOrder,
		IsGlobal:      true,
		IsActive:      true,
	}
	require.NoError(t, conn.Create(&promo).Error)
	return promo
}

func TestGetCreatesEmptyCartOnce(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()

	first, err := svc.Get(ctx, buyer)
	require.NoError(t, err)
	require.Empty(t, first.Items)
	require.Zero(t, first.FinalCents)

	second, err := svc.Get(ctx, buyer)
	require.NoError(t, err)
	require.Equal(t, first.CartID, second.CartID)

	var count int64
	require.NoError(t, conn.Model(&models.Cart{}).Where("buyer_id = ?", buyer).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestAddItemIsIdempotentAndTotalsFollowLivePrices(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()
	a := seedProduct(t, conn, 1500)
	b := seedProduct(t, conn, 2500)

	_, err := svc.AddItem(ctx, buyer, a.ID)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, buyer, a.ID)
	require.NoError(t, err)
	view, err := svc.AddItem(ctx, buyer, b.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	require.Equal(t, int64(4000), view.TotalCents)
	require.Equal(t, int64(4000), view.FinalCents)

	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", b.ID).Update("price_cents", 3000).Error)
	view, err = svc.Get(ctx, buyer)
	require.NoError(t, err)
	require.Equal(t, int64(4500), view.TotalCents)

	view, err = svc.RemoveItem(ctx, buyer, a.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, int64(3000), view.FinalCents)
}

func TestAddItemRejectsMissingAndUnpublishedProducts(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()

	_, err := svc.AddItem(ctx, buyer, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	draft := seedProduct(t, conn, 900)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", draft.ID).Update("status", enums.ProductStatusDraft).Error)
	_, err = svc.AddItem(ctx, buyer, draft.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUnpublishedItemsAreNotCharged(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()
	a := seedProduct(t, conn, 1000)
	b := seedProduct(t, conn, 2000)
	_, err := svc.AddItem(ctx, buyer, a.ID)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, buyer, b.ID)
	require.NoError(t, err)

	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", b.ID).Update("status", enums.ProductStatusArchived).Error)
	view, err := svc.Price(ctx, buyer)
	require.NoError(t, err)
	require.Equal(t, int64(1000), view.TotalCents)
	require.Contains(t, view.Warnings, WarningItemUnavailable)
	require.Equal(t, []uuid.UUID{a.ID}, view.Snapshot().ProductIDs)
}

func TestApplyPromotionAndAutoDetach(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()
	a := seedProduct(t, conn, 3000)
	b := seedProduct(t, conn, 2000)
	seedPromo(t, conn, "SPRING20", 20, 4000)

	_, err := svc.AddItem(ctx, buyer, a.ID)
	require.NoError(t, err)

	_, err = svc.ApplyPromotion(ctx, buyer, "spring20")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeIneligible))
	reason, ok := promotions.RejectionReason(err)
	require.True(t, ok)
	require.Equal(t, promotions.ReasonMinimumNotMet, reason)

	_, err = svc.AddItem(ctx, buyer, b.ID)
	require.NoError(t, err)
	view, err := svc.ApplyPromotion(ctx, buyer, "spring20")
	require.NoError(t, err)
	require.Equal(t, int64(5000), view.TotalCents)
	require.Equal(t, int64(1000), view.DiscountCents)
	require.Equal(t, int64(4000), view.FinalCents)
	require.NotNil(t, view.PromoCode)
	require.Equal(t, "SPRING20", *view.PromoCode)
	require.NotNil(t, view.DiscountPercentage)

	view, err = svc.RemoveItem(ctx, buyer, b.ID)
	require.NoError(t, err)
	require.Nil(t, view.PromoCode)
	require.Zero(t, view.DiscountCents)
	require.Equal(t, int64(3000), view.FinalCents)
	require.Contains(t, view.Warnings, WarningPromotionRemoved)

	var stored models.Cart
	require.NoError(t, conn.First(&stored, "buyer_id = ?", buyer).Error)
	require.Nil(t, stored.PromoCode)
	require.False(t, stored.DiscountPercentage.Valid)
}

func TestApplyUnknownPromotion(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()
	a := seedProduct(t, conn, 3000)
	_, err := svc.AddItem(ctx, buyer, a.ID)
	require.NoError(t, err)

	_, err = svc.ApplyPromotion(ctx, buyer, "NOPE")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = svc.ApplyPromotion(ctx, buyer, "  ")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestClearResetsCartInsideTransaction(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()
	a := seedProduct(t, conn, 3000)
	seedPromo(t, conn, "TEN", 10, 0)
	_, err := svc.AddItem(ctx, buyer, a.ID)
	require.NoError(t, err)
	_, err = svc.ApplyPromotion(ctx, buyer, "TEN")
	require.NoError(t, err)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Clear(ctx, tx, buyer)
	}))

	view, err := svc.Get(ctx, buyer)
	require.NoError(t, err)
	require.Empty(t, view.Items)
	require.Nil(t, view.PromoCode)
	require.Zero(t, view.TotalCents)
}

// lateCartRepo hides an existing cart from the first misses lookups, as a
// concurrent first access that commits after the lookup would.
type lateCartRepo struct {
	CartRepository
	misses *int
}

func (r lateCartRepo) WithTx(tx *gorm.DB) CartRepository {
	return lateCartRepo{CartRepository: r.CartRepository.WithTx(tx), misses: r.misses}
}

func (r lateCartRepo) FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	if *r.misses > 0 {
		*r.misses--
		return nil, nil
	}
	return r.CartRepository.FindByBuyer(ctx, buyerID)
}

func TestLazyCreateRaceReturnsWinningCart(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	buyer := uuid.New()
	winner, err := svc.Get(ctx, buyer)
	require.NoError(t, err)
	product := seedProduct(t, conn, 900)

	misses := 1
	evaluator, err := promotions.NewEvaluator(promotions.NewRepository(conn))
	require.NoError(t, err)
	racing, err := NewService(ServiceParams{
		Repository:        lateCartRepo{CartRepository: NewRepository(conn), misses: &misses},
		Catalog:           catalog.NewRepository(conn),
		Promotions:        evaluator,
		TransactionRunner: pkgdb.NewFromConn(conn),
	})
	require.NoError(t, err)

	view, err := racing.AddItem(ctx, buyer, product.ID)
	require.NoError(t, err)
	require.Equal(t, winner.CartID, view.CartID)
	require.Len(t, view.Items, 1)
	require.Equal(t, int64(900), view.FinalCents)

	var count int64
	require.NoError(t, conn.Model(&models.Cart{}).Where("buyer_id = ?", buyer).Count(&count).Error)
	require.Equal(t, int64(1), count)

	misses = 2
	_, err = racing.Get(ctx, buyer)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}
