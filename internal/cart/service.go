package cart

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/vaultmart-backend/internal/catalog"
	"github.com/angelmondragon/vaultmart-backend/internal/promotions"
	"github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vaultmart-backend/pkg/errors"
	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
	"github.com/angelmondragon/vaultmart-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// errCartRace marks a lazy create that lost to a concurrent first access.
var errCartRace = errors.New("cart created concurrently")

const (
	WarningPromotionRemoved = "promotion_removed"
	WarningItemUnavailable  = "item_unavailable"
)

// Service exposes cart operations.
type Service interface {
	Get(ctx context.Context, buyerID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, buyerID, productID uuid.UUID) (*View, error)
	RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) (*View, error)
	ApplyPromotion(ctx context.Context, buyerID uuid.UUID, code string) (*View, error)
	RemovePromotion(ctx context.Context, buyerID uuid.UUID) (*View, error)
	Price(ctx context.Context, buyerID uuid.UUID) (*View, error)
	Clear(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID) error
}

// ItemView is a cart line with its live catalog data.
type ItemView struct {
	ProductID  uuid.UUID `json:"product_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	Title      string    `json:"title"`
	PriceCents int64     `json:"price_cents"`
	Category   string    `json:"category,omitempty"`
	Industry   string    `json:"industry,omitempty"`
	Available  bool      `json:"available"`
	AddedAt    time.Time `json:"added_at"`
}

// View is the priced cart returned to buyers and consumed by checkout.
type View struct {
	CartID             uuid.UUID        `json:"cart_id"`
	BuyerID            uuid.UUID        `json:"buyer_id"`
	Items              []ItemView       `json:"items"`
	TotalCents         int64            `json:"total_cents"`
	DiscountCents      int64            `json:"discount_cents"`
	FinalCents         int64            `json:"final_cents"`
	PromoCode          *string          `json:"promo_code,omitempty"`
	PromocodeID        *uuid.UUID       `json:"promocode_id,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	Warnings           []string         `json:"warnings,omitempty"`
}

// AvailableProductIDs lists the products that will be charged.
func (v *View) AvailableProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(v.Items))
	for _, item := range v.Items {
		if item.Available {
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

// Snapshot freezes the view for a checkout intent.
func (v *View) Snapshot() models.CartSnapshot {
	return models.CartSnapshot{
		ProductIDs:    v.AvailableProductIDs(),
		PromoCode:     v.PromoCode,
		TotalCents:    v.TotalCents,
		DiscountCents: v.DiscountCents,
		FinalCents:    v.FinalCents,
	}
}

type ServiceParams struct {
	Repository        CartRepository
	Catalog           catalog.Repository
	Promotions        *promotions.Evaluator
	TransactionRunner txRunner
	Logger            *logger.Logger
}

type service struct {
	repo       CartRepository
	catalog    catalog.Repository
	promotions *promotions.Evaluator
	tx         txRunner
	logg       *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository required")
	}
	if params.Promotions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "promotion evaluator required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{
		repo:       params.Repository,
		catalog:    params.Catalog,
		promotions: params.Promotions,
		tx:         params.TransactionRunner,
		logg:       params.Logger,
	}, nil
}

// txScope bundles collaborators bound to one transaction.
type txScope struct {
	tx         *gorm.DB
	repo       CartRepository
	catalog    catalog.Repository
	promotions *promotions.Evaluator
}

func (s *service) scope(tx *gorm.DB) txScope {
	return txScope{
		tx:         tx,
		repo:       s.repo.WithTx(tx),
		catalog:    s.catalog.WithTx(tx),
		promotions: s.promotions.WithTx(tx),
	}
}

func (s *service) Get(ctx context.Context, buyerID uuid.UUID) (*View, error) {
	return s.mutate(ctx, buyerID, nil)
}

// Price revalidates prices and the applied promotion; checkout charges the result.
func (s *service) Price(ctx context.Context, buyerID uuid.UUID) (*View, error) {
	return s.mutate(ctx, buyerID, nil)
}

func (s *service) AddItem(ctx context.Context, buyerID, productID uuid.UUID) (*View, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	return s.mutate(ctx, buyerID, func(sc txScope, cart *models.Cart) error {
		product, err := sc.catalog.FindByID(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if product == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if !product.IsPublished() {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is not available for purchase")
		}
		for _, item := range cart.Items {
			if item.ProductID == productID {
				return nil
			}
		}
		item := &models.CartItem{CartID: cart.ID, ProductID: productID, AddedAt: time.Now().UTC()}
		if err := sc.repo.AddItem(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
		}
		cart.Items = append(cart.Items, *item)
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) (*View, error) {
	return s.mutate(ctx, buyerID, func(sc txScope, cart *models.Cart) error {
		removed, err := sc.repo.RemoveItem(ctx, cart.ID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
		if !removed {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
		}
		kept := cart.Items[:0]
		for _, item := range cart.Items {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		cart.Items = kept
		return nil
	})
}

func (s *service) ApplyPromotion(ctx context.Context, buyerID uuid.UUID, code string) (*View, error) {
	normalized := models.NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion code required")
	}
	return s.mutate(ctx, buyerID, func(sc txScope, cart *models.Cart) error {
		lines, err := s.lines(ctx, sc, cart)
		if err != nil {
			return err
		}
		eval, err := sc.promotions.Evaluate(ctx, normalized, promotionCart(lines), buyerID)
		if err != nil {
			return err
		}
		cart.PromocodeID = &eval.Promotion.ID
		cart.PromoCode = &eval.Promotion.Code
		return nil
	})
}

func (s *service) RemovePromotion(ctx context.Context, buyerID uuid.UUID) (*View, error) {
	return s.mutate(ctx, buyerID, func(sc txScope, cart *models.Cart) error {
		detachPromotion(cart)
		return nil
	})
}

// Clear empties the buyer's cart inside the caller's transaction.
func (s *service) Clear(ctx context.Context, tx *gorm.DB, buyerID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	cart, err := repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart == nil {
		return nil
	}
	if err := repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart items")
	}
	cart.Items = nil
	cart.TotalCents, cart.DiscountCents, cart.FinalCents = 0, 0, 0
	detachPromotion(cart)
	if err := repo.SaveTotals(ctx, cart); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset cart totals")
	}
	return nil
}

// mutate loads (or lazily creates) the cart, applies fn and recomputes totals
// in one transaction. A lost create race is retried once in a fresh
// transaction, which then reads the winning cart.
func (s *service) mutate(ctx context.Context, buyerID uuid.UUID, fn func(sc txScope, cart *models.Cart) error) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	view, err := s.mutateOnce(ctx, buyerID, fn)
	if errors.Is(err, errCartRace) {
		view, err = s.mutateOnce(ctx, buyerID, fn)
	}
	if errors.Is(err, errCartRace) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart created concurrently; retry")
	}
	return view, err
}

func (s *service) mutateOnce(ctx context.Context, buyerID uuid.UUID, fn func(sc txScope, cart *models.Cart) error) (*View, error) {
	var view *View
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sc := s.scope(tx)
		cart, err := s.loadOrCreate(ctx, sc, buyerID)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(sc, cart); err != nil {
				return err
			}
		}
		view, err = s.recompute(ctx, sc, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) loadOrCreate(ctx context.Context, sc txScope, buyerID uuid.UUID) (*models.Cart, error) {
	cart, err := sc.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart != nil {
		return cart, nil
	}
	cart = &models.Cart{ID: uuid.New(), BuyerID: buyerID}
	if err := sc.repo.Create(ctx, cart); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
		return nil, errCartRace
	}
	return cart, nil
}

// recompute derives totals from live prices and re-evaluates the applied
// promotion, detaching it when it no longer qualifies.
func (s *service) recompute(ctx context.Context, sc txScope, cart *models.Cart) (*View, error) {
	view := &View{CartID: cart.ID, BuyerID: cart.BuyerID, Items: []ItemView{}}
	products, err := sc.catalog.FindByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	var lines []promotions.Line
	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		iv := ItemView{ProductID: item.ProductID, AddedAt: item.AddedAt}
		if ok {
			iv.SellerID = product.SellerID
			iv.Title = product.Title
			iv.PriceCents = product.PriceCents
			iv.Category = product.Category
			iv.Industry = product.Industry
			iv.Available = product.IsPublished()
		}
		if iv.Available {
			lines = append(lines, lineFor(product))
		} else {
			view.Warnings = appendOnce(view.Warnings, WarningItemUnavailable)
		}
		view.Items = append(view.Items, iv)
	}

	total := promotionCart(lines).TotalCents()
	var discount int64
	var pct decimal.NullDecimal
	if cart.PromoCode != nil {
		eval, err := sc.promotions.Evaluate(ctx, *cart.PromoCode, promotionCart(lines), cart.BuyerID)
		switch {
		case err == nil:
			discount = eval.DiscountCents
			pct = eval.Percentage()
			cart.PromocodeID = &eval.Promotion.ID
		case isRejection(err):
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{"cart_id": cart.ID.String(), "promo_code": *cart.PromoCode})
				s.logg.Warn(logCtx, "applied promotion no longer valid; detaching")
			}
			detachPromotion(cart)
			view.Warnings = appendOnce(view.Warnings, WarningPromotionRemoved)
		default:
			return nil, err
		}
	}

	cart.TotalCents = total
	cart.DiscountCents = discount
	cart.FinalCents = money.NonNegative(total - discount)
	cart.DiscountPercentage = pct
	if err := sc.repo.SaveTotals(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart totals")
	}

	view.TotalCents = cart.TotalCents
	view.DiscountCents = cart.DiscountCents
	view.FinalCents = cart.FinalCents
	view.PromoCode = cart.PromoCode
	view.PromocodeID = cart.PromocodeID
	if pct.Valid {
		value := pct.Decimal
		view.DiscountPercentage = &value
	}
	return view, nil
}

func (s *service) lines(ctx context.Context, sc txScope, cart *models.Cart) ([]promotions.Line, error) {
	products, err := sc.catalog.FindByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	lines := make([]promotions.Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		if product, ok := products[item.ProductID]; ok && product.IsPublished() {
			lines = append(lines, lineFor(product))
		}
	}
	return lines, nil
}

func lineFor(product models.Product) promotions.Line {
	return promotions.Line{
		ProductID:  product.ID,
		SellerID:   product.SellerID,
		PriceCents: product.PriceCents,
		Category:   product.Category,
		Industry:   product.Industry,
	}
}

func promotionCart(lines []promotions.Line) promotions.Cart {
	return promotions.Cart{Lines: lines}
}

func detachPromotion(cart *models.Cart) {
	cart.PromocodeID = nil
	cart.PromoCode = nil
	cart.DiscountCents = 0
	cart.DiscountPercentage = decimal.NullDecimal{}
}

func isRejection(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeIneligible) || pkgerrors.IsCode(err, pkgerrors.CodeNotFound)
}

func appendOnce(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}
