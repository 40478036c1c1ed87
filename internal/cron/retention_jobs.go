package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/vaultmart-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultNotificationRetention = 90 * 24 * time.Hour
	defaultOutboxRetention       = 30 * 24 * time.Hour
	defaultRetentionBatch        = 500
	maxRetentionBatches          = 50
)

// batchDeleter removes up to limit expired rows per call.
type batchDeleter func(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)

type RetentionJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Retention time.Duration
	BatchSize int
}

// retentionJob deletes expired rows in short transactions so a large
// backlog never holds one long lock.
type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	deleteFn  batchDeleter
	retention time.Duration
	batch     int
	now       func() time.Time
}

type notificationPurger interface {
	DeleteReadOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

// NewNotificationCleanupJob purges read notifications past retention.
func NewNotificationCleanupJob(params RetentionJobParams, repo notificationPurger) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return newRetentionJob("notification-cleanup", params, defaultNotificationRetention, repo.DeleteReadOlderThan)
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

// NewOutboxRetentionJob purges published outbox rows past retention.
func NewOutboxRetentionJob(params RetentionJobParams, repo outboxPurger) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return newRetentionJob("outbox-retention", params, defaultOutboxRetention, repo.DeletePublishedBefore)
}

func newRetentionJob(name string, params RetentionJobParams, fallback time.Duration, fn batchDeleter) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = fallback
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultRetentionBatch
	}
	return &retentionJob{
		name:      name,
		logg:      params.Logger,
		db:        params.DB,
		deleteFn:  fn,
		retention: retention,
		batch:     batch,
		now:       time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	for i := 0; i < maxRetentionBatches; i++ {
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := j.deleteFn(ctx, tx, cutoff, j.batch)
			deleted = n
			return err
		})
		if err != nil {
			return fmt.Errorf("delete batch: %w", err)
		}
		total += deleted
		if deleted < int64(j.batch) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
	})
	j.logg.Info(logCtx, "retention cleanup complete")
	return nil
}
