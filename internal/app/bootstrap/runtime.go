package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/locks"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildLocker returns the booking lock. Without BOOKING_LOCK_ENABLED or a
// reachable Redis the scheduler runs unlocked and the double-booking window
// between the availability re-check and the insert stays open.
func BuildLocker(cfg *appconfig.Config, client *redis.Client, logger *logging.Logger) locks.Locker {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || !cfg.BookingLockEnabled {
		return locks.Noop{}
	}
	if client == nil {
		logger.Warn("booking lock enabled but redis unavailable; bookings are not serialized")
		return locks.Noop{}
	}
	logger.Info("booking lock enabled", "ttl", cfg.BookingLockTTL.String())
	return locks.NewRedisLocker(client, cfg.BookingLockTTL, logger)
}
