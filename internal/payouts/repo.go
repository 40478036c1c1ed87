package payouts

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

// Repository persists payouts. Status changes are conditional on the status
// the caller observed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	FindOpenBySeller(ctx context.Context, sellerID uuid.UUID) (*models.Payout, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus, fields map[string]any) (bool, error)
	List(ctx context.Context, params listPayoutsParams) ([]models.Payout, *pagination.Cursor, error)
	ListRecentBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Payout, error)
}

type listPayoutsParams struct {
	Status   *enums.PayoutStatus
	SellerID *uuid.UUID
	From     *time.Time
	To       *time.Time
	Limit    int
	Cursor   *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, payout *models.Payout) error {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payout).Error
}

// FindByID returns (nil, nil) when the payout does not exist.
func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// FindOpenBySeller returns the seller's payout that blocks a new request.
func (r *repositoryImpl) FindOpenBySeller(ctx context.Context, sellerID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND status IN ?", sellerID, enums.OpenPayoutStatuses()).
		Order("requested_at DESC").
		First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// UpdateStatus moves the payout from one status to another and reports
// whether the row was still in the expected status.
func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PayoutStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listPayoutsParams) ([]models.Payout, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Payout{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.SellerID != nil {
		query = query.Where("seller_id = ?", *params.SellerID)
	}
	if params.From != nil {
		query = query.Where("requested_at >= ?", params.From.UTC())
	}
	if params.To != nil {
		query = query.Where("requested_at <= ?", params.To.UTC())
	}
	if params.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Payout
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	if len(rows) > normalized {
		last := rows[normalized-1]
		return rows[:normalized], &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

func (r *repositoryImpl) ListRecentBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Payout, error) {
	var rows []models.Payout
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("requested_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
