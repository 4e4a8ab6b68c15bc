package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned by Unlock when the lock expired or belongs to
// another holder
var ErrLockNotHeld = errors.New("lock not held")

const lockKeyPrefix = "lock:"

// releaseScript deletes the key only if it still carries our token
var releaseScript = goredis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Lock is a single-key mutual exclusion lock shared by every instance that
// points at the same Redis
type Lock struct {
	client *goredis.Client
	key    string

	mu    sync.Mutex
	token string
}

// NewLock creates a lock stored under lock:<name>
func NewLock(client *goredis.Client, name string) *Lock {
	return &Lock{client: client, key: lockKeyPrefix + name}
}

// TryLock takes the lock for ttl without waiting. It reports false when
// another holder has it.
func (l *Lock) TryLock(ctx context.Context, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

// Unlock releases the lock if this instance still holds it
func (l *Lock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()

	if token == "" {
		return ErrLockNotHeld
	}
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int64()
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
