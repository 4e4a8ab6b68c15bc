package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const watermarkKeyPrefix = "watermark:"

// Watermark remembers a single point in time, e.g. when the last sweep ran
type Watermark struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
}

// NewWatermark creates a watermark stored under watermark:<name>. A zero ttl
// keeps the value forever.
func NewWatermark(client *goredis.Client, name string, ttl time.Duration) *Watermark {
	return &Watermark{client: client, key: watermarkKeyPrefix + name, ttl: ttl}
}

// Get returns the stored time. ok is false when nothing was stored yet.
func (w *Watermark) Get(ctx context.Context) (t time.Time, ok bool, err error) {
	raw, err := w.client.Get(ctx, w.key).Result()
	if errors.Is(err, goredis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get %s: %w", w.key, err)
	}

	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse %s: %w", w.key, err)
	}
	return time.Unix(0, nanos).UTC(), true, nil
}

// Set stores t
func (w *Watermark) Set(ctx context.Context, t time.Time) error {
	if err := w.client.Set(ctx, w.key, strconv.FormatInt(t.UnixNano(), 10), w.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", w.key, err)
	}
	return nil
}
