package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	"github.com/angelmondragon/vaultmart-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByReference(ctx context.Context, reference string) (*models.Purchase, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	Create(ctx context.Context, purchase *models.Purchase) error
	GrantAccess(ctx context.Context, purchaseID uuid.UUID, at time.Time) error
	RevokeAccess(ctx context.Context, purchaseID uuid.UUID) error
	MarkCompleted(ctx context.Context, purchaseID uuid.UUID, at time.Time) (bool, error)
	MarkRefunded(ctx context.Context, purchaseID uuid.UUID, at time.Time) (bool, error)
	ListByBuyer(ctx context.Context, params listOrdersParams) ([]models.Purchase, *pagination.Cursor, error)
	HasAccess(ctx context.Context, buyerID, productID uuid.UUID) (bool, error)
}

type listOrdersParams struct {
	BuyerID uuid.UUID
	Limit   int
	Cursor  *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindByReference(ctx context.Context, reference string) (*models.Purchase, error) {
	return r.find(ctx, "payment_reference = ?", reference)
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	return r.find(ctx, "id = ?", id)
}

func (r *repositoryImpl) find(ctx context.Context, query string, arg any) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where(query, arg).
		First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// Create inserts the purchase and its items. A duplicate payment reference
// surfaces as a unique violation.
func (r *repositoryImpl) Create(ctx context.Context, purchase *models.Purchase) error {
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	conn := r.db.WithContext(ctx)
	if err := conn.Omit("Items").Create(purchase).Error; err != nil {
		return err
	}
	if len(purchase.Items) == 0 {
		return nil
	}
	for i := range purchase.Items {
		if purchase.Items[i].ID == uuid.Nil {
			purchase.Items[i].ID = uuid.New()
		}
		purchase.Items[i].PurchaseID = purchase.ID
		purchase.Items[i].Position = i
	}
	return conn.Create(&purchase.Items).Error
}

func (r *repositoryImpl) GrantAccess(ctx context.Context, purchaseID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PurchaseItem{}).
		Where("purchase_id = ?", purchaseID).
		Updates(map[string]any{"access_granted": true, "access_granted_at": at}).Error
}

func (r *repositoryImpl) RevokeAccess(ctx context.Context, purchaseID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PurchaseItem{}).
		Where("purchase_id = ?", purchaseID).
		Updates(map[string]any{"access_granted": false, "access_granted_at": nil}).Error
}

// MarkCompleted flips a pending purchase to completed and reports whether a
// row changed.
func (r *repositoryImpl) MarkCompleted(ctx context.Context, purchaseID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND payment_status = ? AND order_status = ?", purchaseID, enums.PaymentStatusPending, enums.OrderStatusPending).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusCompleted,
			"order_status":   enums.OrderStatusCompleted,
			"completed_at":   at,
			"updated_at":     at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkRefunded flips a completed purchase to refunded; both status fields move together.
func (r *repositoryImpl) MarkRefunded(ctx context.Context, purchaseID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND payment_status = ? AND order_status = ?", purchaseID, enums.PaymentStatusCompleted, enums.OrderStatusCompleted).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusRefunded,
			"order_status":   enums.OrderStatusRefunded,
			"refunded_at":    at,
			"updated_at":     at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ListByBuyer(ctx context.Context, params listOrdersParams) ([]models.Purchase, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("buyer_id = ?", params.BuyerID)
	if params.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var purchases []models.Purchase
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&purchases).Error; err != nil {
		return nil, nil, err
	}
	if len(purchases) > normalized {
		last := purchases[normalized-1]
		return purchases[:normalized], &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return purchases, nil, nil
}

func (r *repositoryImpl) HasAccess(ctx context.Context, buyerID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseItem{}).
		Joins("JOIN purchases ON purchases.id = purchase_items.purchase_id").
		Where("purchases.buyer_id = ? AND purchase_items.product_id = ? AND purchase_items.access_granted = ?", buyerID, productID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
