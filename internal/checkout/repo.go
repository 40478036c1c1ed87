package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/vaultmart-backend/pkg/db/models"
	"github.com/angelmondragon/vaultmart-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists checkout intents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, intent *models.CheckoutIntent) error
	FindByProcessorID(ctx context.Context, processorIntentID string) (*models.CheckoutIntent, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.CheckoutIntent, error)
	MarkChecked(ctx context.Context, ids []uuid.UUID, at time.Time) error
	FlagForReview(ctx context.Context, processorIntentID, reason string) error
	MarkSucceeded(ctx context.Context, tx *gorm.DB, processorIntentID string, orderID uuid.UUID) error
	MarkFailed(ctx context.Context, tx *gorm.DB, processorIntentID string, status enums.CheckoutIntentStatus, reason string) (*models.CheckoutIntent, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a checkout intent repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *repositoryImpl) Create(ctx context.Context, intent *models.CheckoutIntent) error {
	if intent.ID == uuid.Nil {
		intent.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(intent).Error
}

// FindByProcessorID returns (nil, nil) for unknown intents.
func (r *repositoryImpl) FindByProcessorID(ctx context.Context, processorIntentID string) (*models.CheckoutIntent, error) {
	return r.find(r.db.WithContext(ctx), processorIntentID)
}

func (r *repositoryImpl) find(q *gorm.DB, processorIntentID string) (*models.CheckoutIntent, error) {
	var intent models.CheckoutIntent
	err := q.Where("processor_intent_id = ?", processorIntentID).First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// ListPendingOlderThan returns pending intents created before cutoff, skipping
// those flagged for review. Intents never checked come first, then the least
// recently checked.
func (r *repositoryImpl) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.CheckoutIntent, error) {
	var intents []models.CheckoutIntent
	query := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ? AND review_reason IS NULL", enums.CheckoutIntentStatusPending, cutoff).
		Order("last_checked_at IS NOT NULL, last_checked_at ASC, created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&intents).Error; err != nil {
		return nil, err
	}
	return intents, nil
}

// MarkChecked stamps last_checked_at on intents that are still pending.
func (r *repositoryImpl) MarkChecked(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("id IN ? AND status = ?", ids, enums.CheckoutIntentStatusPending).
		Update("last_checked_at", at).Error
}

// FlagForReview parks a pending intent for manual review so reconciliation
// stops retrying it.
func (r *repositoryImpl) FlagForReview(ctx context.Context, processorIntentID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("processor_intent_id = ? AND status = ?", processorIntentID, enums.CheckoutIntentStatusPending).
		Updates(map[string]any{
			"review_reason": reason,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// MarkSucceeded links the intent to its order. Unknown intents are ignored.
func (r *repositoryImpl) MarkSucceeded(ctx context.Context, tx *gorm.DB, processorIntentID string, orderID uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Model(&models.CheckoutIntent{}).
		Where("processor_intent_id = ?", processorIntentID).
		Updates(map[string]any{
			"status":     enums.CheckoutIntentStatusSucceeded,
			"order_id":   orderID,
			"updated_at": time.Now().UTC(),
		}).Error
}

// MarkFailed moves a pending intent to status and returns it; nil means the
// intent was unknown or already resolved.
func (r *repositoryImpl) MarkFailed(ctx context.Context, tx *gorm.DB, processorIntentID string, status enums.CheckoutIntentStatus, reason string) (*models.CheckoutIntent, error) {
	conn := r.conn(tx).WithContext(ctx)
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if reason != "" {
		updates["failure_reason"] = reason
	}
	result := conn.Model(&models.CheckoutIntent{}).
		Where("processor_intent_id = ? AND status = ?", processorIntentID, enums.CheckoutIntentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return r.find(conn, processorIntentID)
}
