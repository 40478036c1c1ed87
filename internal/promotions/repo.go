package promotions

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes promocode and usage-ledger persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Promocode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Promocode, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Promocode, error)
	CountUsagesByUser(ctx context.Context, promocodeID, userID uuid.UUID) (int64, error)
	InsertUsage(ctx context.Context, usage *models.PromocodeUsage) error
	IncrementUsage(ctx context.Context, promocodeID uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository binds the promotions repository to a database handle.
func NewRepository(conn *gorm.DB) Repository {
	return &repositoryImpl{db: conn}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// FindByCode performs a case-insensitive lookup. A missing code returns (nil, nil).
func (r *repositoryImpl) FindByCode(ctx context.Context, code string) (*models.Promocode, error) {
	var promo models.Promocode
	err := r.db.WithContext(ctx).
		Where("lower(code) = lower(?)", models.NormalizeCode(code)).
		First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Promocode, error) {
	var promo models.Promocode
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// LockByID loads the promocode row for update inside the caller's transaction.
func (r *repositoryImpl) LockByID(ctx context.Context, id uuid.UUID) (*models.Promocode, error) {
	var promo models.Promocode
	err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repositoryImpl) CountUsagesByUser(ctx context.Context, promocodeID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PromocodeUsage{}).
		Where("promocode_id = ? AND user_id = ?", promocodeID, userID).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) InsertUsage(ctx context.Context, usage *models.PromocodeUsage) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	if usage.UsedAt.IsZero() {
		usage.UsedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *repositoryImpl) IncrementUsage(ctx context.Context, promocodeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Promocode{}).
		Where("id = ?", promocodeID).
		UpdateColumn("current_usage_count", gorm.Expr("current_usage_count + 1")).Error
}
