package cron

import (
	"context"
	"errors"
	"time"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/metrics"
)

const defaultInterval = time.Minute

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locks    Locker
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	Now      func() time.Time
}

// Service ticks every interval and runs the jobs that are due. A job runs
// only while this worker holds its lease, and its context ends when the
// lease would expire so two workers never overlap on the same job.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locks    Locker
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron service: logger required")
	case params.Locks == nil:
		return nil, errors.New("cron service: locker required")
	}
	s := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		locks:    params.Locks,
		metrics:  params.Metrics,
		interval: params.Interval,
		now:      params.Now,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Run blocks until ctx is canceled. The first cycle runs immediately.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.runCycle(ctx)
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	for _, job := range s.registry.Due(s.now()) {
		if ctx.Err() != nil {
			return
		}
		s.attempt(s.logg.WithField(ctx, "job", job.Name()), job)
		s.registry.MarkRun(job.Name(), s.now())
	}
}

func (s *Service) attempt(ctx context.Context, job Job) {
	name := job.Name()
	lease, err := s.locks.TryLock(ctx, name)
	switch {
	case err != nil:
		s.logg.Error(ctx, "cron.lock_failed", err)
		s.metrics.IncFailure(name)
		return
	case lease == nil:
		s.logg.Debug(ctx, "cron.held_elsewhere")
		s.metrics.IncSkipped(name)
		return
	}
	defer func() {
		// The job context may already be done; release on a fresh one.
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron.unlock_failed", err)
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, lease.TTL())
	defer cancel()

	started := s.now()
	err = job.Run(jobCtx)
	elapsed := s.now().Sub(started)
	s.metrics.ObserveDuration(name, elapsed)

	ctx = s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron.job_failed", err)
		s.metrics.IncFailure(name)
		return
	}
	s.logg.Info(ctx, "cron.job_completed")
	s.metrics.IncSuccess(name)
}
