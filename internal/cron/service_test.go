package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/metrics"
)

// fakeLocker holds a lease per job name; names in busy are owned by another worker.
type fakeLocker struct {
	busy     map[string]bool
	held     map[string]bool
	releases map[string]int
	ttl      time.Duration
}

func newFakeLocker(busy ...string) *fakeLocker {
	f := &fakeLocker{busy: map[string]bool{}, held: map[string]bool{}, releases: map[string]int{}, ttl: time.Minute}
	for _, name := range busy {
		f.busy[name] = true
	}
	return f
}

func (f *fakeLocker) TryLock(_ context.Context, job string) (Lease, error) {
	if f.busy[job] || f.held[job] {
		return nil, nil
	}
	f.held[job] = true
	return &fakeLease{locker: f, job: job}, nil
}

type fakeLease struct {
	locker *fakeLocker
	job    string
}

func (l *fakeLease) TTL() time.Duration { return l.locker.ttl }

func (l *fakeLease) Release(context.Context) error {
	l.locker.held[l.job] = false
	l.locker.releases[l.job]++
	return nil
}

type testJob struct {
	name     string
	err      error
	runs     int
	deadline time.Time
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	t.deadline, _ = ctx.Deadline()
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	locks := newFakeLocker()
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(success, failure),
		Locks:    locks,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	service.runCycle(context.Background())

	if success.runs != 1 {
		t.Fatalf("expected success job to run once, ran %d", success.runs)
	}
	if failure.runs != 1 {
		t.Fatalf("expected failure job to run once, ran %d", failure.runs)
	}
	for _, name := range []string{"success", "fail"} {
		if locks.held[name] || locks.releases[name] != 1 {
			t.Fatalf("lease for %s not released: held=%v releases=%d", name, locks.held[name], locks.releases[name])
		}
	}
}

func TestServiceSkipsJobHeldElsewhere(t *testing.T) {
	reg := prometheus.NewRegistry()
	cronMetrics := metrics.NewCronJobMetrics(reg)
	held := &testJob{name: "payment-timeout"}
	free := &testJob{name: "retention"}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: NewRegistry(held, free),
		Metrics:  cronMetrics,
		Locks:    newFakeLocker("payment-timeout"),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	service.runCycle(context.Background())

	if held.runs != 0 {
		t.Fatalf("expected locked job to be skipped, ran %d", held.runs)
	}
	if free.runs != 1 {
		t.Fatalf("expected free job to run once, ran %d", free.runs)
	}
	if got := skippedCount(t, reg, "payment-timeout"); got != 1 {
		t.Fatalf("expected one skipped cycle, got %v", got)
	}
}

func TestServiceRespectsJobCadence(t *testing.T) {
	sweep := &testJob{name: "payment-timeout"}
	purge := &testJob{name: "retention"}
	registry := NewRegistry(sweep)
	if err := registry.Register(purge, time.Hour); err != nil {
		t.Fatalf("register: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: registry,
		Locks:    newFakeLocker(),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	service.runCycle(context.Background())
	service.runCycle(context.Background())

	if sweep.runs != 2 {
		t.Fatalf("expected sweep every cycle, ran %d", sweep.runs)
	}
	if purge.runs != 1 {
		t.Fatalf("expected hourly job once, ran %d", purge.runs)
	}
}

func TestNewServiceRequiresLocks(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: logger.New(logger.Options{})}); err == nil {
		t.Fatal("expected error without lock factory")
	}
	if _, err := NewService(ServiceParams{Locks: newFakeLocker()}); err == nil {
		t.Fatal("expected error without logger")
	}
}

func TestServiceBoundsJobByLeaseTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	job := &testJob{name: "payment-timeout"}
	locks := newFakeLocker()
	locks.ttl = 90 * time.Second
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: NewRegistry(job),
		Locks:    locks,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	before := time.Now()
	service.runCycle(context.Background())

	if job.deadline.IsZero() {
		t.Fatal("expected job context to carry a deadline")
	}
	if d := job.deadline.Sub(before); d > locks.ttl+time.Second || d < locks.ttl-time.Second {
		t.Fatalf("expected deadline about one lease ttl away, got %v", d)
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	service, _ := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Locks:    newFakeLocker(),
		Interval: time.Hour,
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func skippedCount(t *testing.T, reg *prometheus.Registry, job string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "cargoparts_cron_job_runs_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			var jobMatch, skipped bool
			for _, label := range metric.GetLabel() {
				switch {
				case label.GetName() == "job" && label.GetValue() == job:
					jobMatch = true
				case label.GetName() == "outcome" && label.GetValue() == metrics.OutcomeSkipped:
					skipped = true
				}
			}
			if jobMatch && skipped {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
