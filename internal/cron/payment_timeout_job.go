package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/OmarEhab007/cargoparts-sub002/internal/orders"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/db/models"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/enums"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/outbox"
)

const (
	paymentTimeoutJobName = "payment-timeout"
	defaultPaymentTimeout = 30 * time.Minute
	defaultSweepBatch     = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PaymentTimeoutJobParams configure the unpaid order sweeper.
type PaymentTimeoutJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Orders      orders.Repository
	Transitions orders.Transitioner
	Timeout     time.Duration
	BatchSize   int
}

// NewPaymentTimeoutJob builds the job that cancels orders left PENDING past
// the payment timeout and releases their reservations.
func NewPaymentTimeoutJob(params PaymentTimeoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Transitions == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultPaymentTimeout
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &paymentTimeoutJob{
		logg:        params.Logger,
		db:          params.DB,
		orders:      params.Orders,
		transitions: params.Transitions,
		timeout:     timeout,
		batch:       batch,
		now:         time.Now,
	}, nil
}

type paymentTimeoutJob struct {
	logg        *logger.Logger
	db          txRunner
	orders      orders.Repository
	transitions orders.Transitioner
	timeout     time.Duration
	batch       int
	now         func() time.Time
}

func (j *paymentTimeoutJob) Name() string { return paymentTimeoutJobName }

func (j *paymentTimeoutJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.timeout)
	stale, err := j.orders.FindPendingOrdersBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query unpaid orders: %w", err)
	}

	var errs error
	expired, skipped := 0, 0
	for _, order := range stale {
		done, err := j.expire(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if done {
			expired++
		} else {
			skipped++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"found":   len(stale),
		"expired": expired,
		"skipped": skipped,
		"failed":  len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "payment timeout sweep complete")
	return errs
}

// expire cancels one order in its own transaction. It reports false when the
// order left PENDING after it was selected, e.g. a payment webhook won.
func (j *paymentTimeoutJob) expire(ctx context.Context, order models.Order) (bool, error) {
	var done bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := j.orders.WithTx(tx).FindOrder(ctx, order.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if current.Status != enums.OrderStatusPending {
			return nil
		}
		reason := enums.CancelReasonPaymentTimeout
		err = j.transitions.Apply(ctx, tx, current, enums.OrderStatusCancelled, orders.TransitionOptions{
			Reason:       &reason,
			Actor:        outbox.SystemActor(paymentTimeoutJobName),
			IntentStatus: enums.PaymentIntentStatusCancelled,
		})
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			return nil
		}
		if err != nil {
			return err
		}
		done = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if done {
		j.logg.Info(j.logg.WithOrderID(ctx, order.ID.String()), "unpaid order cancelled")
	}
	return done, nil
}
