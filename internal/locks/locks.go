// Package locks serializes booking commits per calendar day.
package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// ErrLockHeld is returned when another booking already holds the lock.
var ErrLockHeld = errors.New("locks: lock held by another booking")

// Locker acquires a short-lived exclusive lock on a key. The returned release
// func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// Noop never blocks. Used when BOOKING_LOCK_ENABLED is false.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// Release only deletes the key if it still holds our token, so an expired
// lock re-acquired by another caller is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *logging.Logger
}

// NewRedisLocker creates a locker whose keys expire after ttl.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisLocker {
	if client == nil {
		panic("locks: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLocker{client: client, ttl: ttl, prefix: "clinic:booking-lock:", logger: logger}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	full := l.prefix + key
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, full, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("locks: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	released := false
	return func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true
		n, err := releaseScript.Run(ctx, l.client, []string{full}, token).Int()
		if err != nil {
			return fmt.Errorf("locks: release %s: %w", key, err)
		}
		if n == 0 {
			l.logger.Warn("booking lock expired before release", "key", key, "ttl", l.ttl.String())
		}
		return nil
	}, nil
}

// BookingKey scopes a lock to one slot start on one calendar. Slots are
// fixed 30 minute grid cells, so two different starts never share a cell.
func BookingKey(calendarID string, start time.Time) string {
	return calendarID + ":" + start.Format("2006-01-02T15:04")
}
