package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/instance"
)

// DefaultLockTTL bounds how long a crashed worker can keep a job locked.
const DefaultLockTTL = 5 * time.Minute

// Lease is a held job lock. Release is safe to call after the TTL has
// expired; it never removes a lease taken over by another worker.
type Lease interface {
	Release(ctx context.Context) error
	TTL() time.Duration
}

// Locker hands out per-job leases. TryLock returns a nil lease, and no error,
// when another worker holds the job.
type Locker interface {
	TryLock(ctx context.Context, job string) (Lease, error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, value string) (bool, error)
	LockKey(name string) string
}

// RedisLocker takes leases with SET NX PX under the client's lock namespace.
type RedisLocker struct {
	store lockStore
	ttl   time.Duration
}

func NewRedisLocker(store lockStore, ttl time.Duration) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("redis client required for cron locks")
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{store: store, ttl: ttl}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, job string) (Lease, error) {
	if job == "" {
		return nil, errors.New("job name required for lock")
	}
	lease := &redisLease{
		store: l.store,
		key:   l.store.LockKey("cron:" + job),
		token: instance.ID() + ":" + uuid.NewString(),
		ttl:   l.ttl,
	}
	ok, err := l.store.SetNX(ctx, lease.key, lease.token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", job, err)
	}
	if !ok {
		return nil, nil
	}
	return lease, nil
}

type redisLease struct {
	store lockStore
	key   string
	token string
	ttl   time.Duration
}

func (l *redisLease) TTL() time.Duration { return l.ttl }

func (l *redisLease) Release(ctx context.Context) error {
	if _, err := l.store.DelIfValue(ctx, l.key, l.token); err != nil {
		return fmt.Errorf("unlock %s: %w", l.key, err)
	}
	return nil
}
