package cart

import (
	"context"

	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartRepository abstracts cart persistence so services can be tested.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	AddItem(ctx context.Context, item *models.CartItem) error
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error)
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	SaveTotals(ctx context.Context, cart *models.Cart) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
