package scheduler

import (
	"context"
	"sync"
	"time"
)

// Locker keeps two instances from sweeping at the same time. It is satisfied
// by internal/redis.Lock.
type Locker interface {
	TryLock(ctx context.Context, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context) error
}

// Watermark stores when the last successful sweep ran. It is satisfied by
// internal/redis.Watermark.
type Watermark interface {
	Get(ctx context.Context) (time.Time, bool, error)
	Set(ctx context.Context, t time.Time) error
}

// localLocker always succeeds. With it the in-process guard is the only
// protection, so exactly one instance may run the scheduler.
type localLocker struct{}

func (localLocker) TryLock(context.Context, time.Duration) (bool, error) { return true, nil }
func (localLocker) Unlock(context.Context) error                         { return nil }

// MemoryWatermark keeps the watermark in process memory; it is lost on restart
type MemoryWatermark struct {
	mu sync.Mutex
	at time.Time
}

func (m *MemoryWatermark) Get(context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.at, !m.at.IsZero(), nil
}

func (m *MemoryWatermark) Set(_ context.Context, t time.Time) error {
	m.mu.Lock()
	m.at = t
	m.mu.Unlock()
	return nil
}
