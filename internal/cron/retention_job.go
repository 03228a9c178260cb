package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
)

const (
	defaultOutboxRetention  = 30 * 24 * time.Hour
	defaultWebhookRetention = 90 * 24 * time.Hour
	outboxMinAttempts       = 5
)

type RetentionJobParams struct {
	Logger           *logger.Logger
	DB               txRunner
	Outbox           outboxRetentionRepo
	Webhooks         webhookRetentionRepo
	OutboxRetention  time.Duration
	WebhookRetention time.Duration
	MinAttempts      int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type webhookRetentionRepo interface {
	DeleteProcessedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewRetentionJob prunes published outbox rows and aged webhook dedup rows.
// Webhooks is optional.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &retentionJob{
		logg:             params.Logger,
		db:               params.DB,
		outbox:           params.Outbox,
		webhooks:         params.Webhooks,
		outboxRetention:  params.OutboxRetention,
		webhookRetention: params.WebhookRetention,
		minAttempts:      params.MinAttempts,
		now:              time.Now,
	}
	if job.outboxRetention <= 0 {
		job.outboxRetention = defaultOutboxRetention
	}
	if job.webhookRetention <= 0 {
		job.webhookRetention = defaultWebhookRetention
	}
	if job.minAttempts <= 0 {
		job.minAttempts = outboxMinAttempts
	}
	return job, nil
}

type retentionJob struct {
	logg             *logger.Logger
	db               txRunner
	outbox           outboxRetentionRepo
	webhooks         webhookRetentionRepo
	outboxRetention  time.Duration
	webhookRetention time.Duration
	minAttempts      int
	now              func() time.Time
}

func (j *retentionJob) Name() string { return "retention" }

func (j *retentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	outboxCutoff := now.Add(-j.outboxRetention)
	webhookCutoff := now.Add(-j.webhookRetention)

	var outboxDeleted, webhooksDeleted int64
	var errs error
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.outbox.DeletePublishedBefore(ctx, tx, outboxCutoff, j.minAttempts)
		outboxDeleted = rows
		return err
	})
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("outbox retention: %w", err))
	}

	if j.webhooks != nil {
		err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
			rows, err := j.webhooks.DeleteProcessedBefore(ctx, tx, webhookCutoff)
			webhooksDeleted = rows
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("webhook retention: %w", err))
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"outbox_cutoff":    outboxCutoff,
		"webhook_cutoff":   webhookCutoff,
		"min_attempts":     j.minAttempts,
		"outbox_deleted":   outboxDeleted,
		"webhooks_deleted": webhooksDeleted,
	})
	j.logg.Info(logCtx, "retention cleanup complete")
	return errs
}
