package platformconfig

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/vaultmart-backend/pkg/db"
	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists platform configuration rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActive(ctx context.Context) (*models.PlatformConfig, error)
	LockActive(ctx context.Context) (*models.PlatformConfig, error)
	Create(ctx context.Context, cfg *models.PlatformConfig) error
	Save(ctx context.Context, cfg *models.PlatformConfig) error
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository binds the platform configuration repository to a database handle.
func NewRepository(conn *gorm.DB) Repository {
	return &repositoryImpl{db: conn}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindActive(ctx context.Context) (*models.PlatformConfig, error) {
	return r.active(r.db.WithContext(ctx))
}

func (r *repositoryImpl) LockActive(ctx context.Context) (*models.PlatformConfig, error) {
	return r.active(db.ForUpdate(r.db.WithContext(ctx)))
}

func (r *repositoryImpl) active(q *gorm.DB) (*models.PlatformConfig, error) {
	var cfg models.PlatformConfig
	err := q.Where("is_active = ?", true).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *repositoryImpl) Create(ctx context.Context, cfg *models.PlatformConfig) error {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(cfg).Error
}

func (r *repositoryImpl) Save(ctx context.Context, cfg *models.PlatformConfig) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}

func (r *repositoryImpl) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PlatformConfig{}).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumns(map[string]any{
			"is_active":      false,
			"deactivated_at": at,
			"updated_at":     at,
		}).Error
}
