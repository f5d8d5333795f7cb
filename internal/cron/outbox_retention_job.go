package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	dlqRetentionDays    = 90
)

type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    outboxRetentionRepo
	DLQ           dlqRetentionRepo
	RetentionDays int
	DLQDays       int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob prunes reconciled outbox rows and old dead letters.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.DLQ == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	dlqDays := params.DLQDays
	if dlqDays <= 0 {
		dlqDays = dlqRetentionDays
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		dlq:       params.DLQ,
		retention: retention,
		dlqDays:   dlqDays,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxRetentionRepo
	dlq       dlqRetentionRepo
	retention int
	dlqDays   int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run purges both tables in separate transactions; a failure in one does not
// roll back the other.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	outboxCutoff := now.Add(-time.Duration(j.retention) * 24 * time.Hour)
	dlqCutoff := now.Add(-time.Duration(j.dlqDays) * 24 * time.Hour)

	var published, dead int64
	errOutbox := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.repo.DeletePublishedBefore(ctx, tx, outboxCutoff)
		published = n
		return err
	})
	if errOutbox != nil {
		errOutbox = fmt.Errorf("outbox retention: %w", errOutbox)
	}
	errDLQ := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.dlq.DeleteFailedBefore(ctx, tx, dlqCutoff)
		dead = n
		return err
	})
	if errDLQ != nil {
		errDLQ = fmt.Errorf("dlq retention: %w", errDLQ)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"outbox_cutoff":   outboxCutoff,
		"dlq_cutoff":      dlqCutoff,
		"outbox_deleted":  published,
		"dlq_deleted":     dead,
		"retention_days":  j.retention,
		"dlq_retain_days": j.dlqDays,
	}), "outbox retention cleanup complete")
	return multierr.Combine(errOutbox, errDLQ)
}
