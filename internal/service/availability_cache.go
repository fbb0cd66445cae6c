package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/court-reservation/internal/config"
	"github.com/iliyamo/court-reservation/internal/metrics"
)

// AvailabilityCache is a Redis read-through cache of per-day availability.
// Entries are dropped whenever a booking or cancellation touches the day
// and otherwise expire after the configured TTL.  Any Redis failure is
// logged and treated as a miss, so availability is then served from MySQL.
type AvailabilityCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	prefix  string
	log     *zap.Logger
	metrics *metrics.Booking
}

// NewAvailabilityCache returns nil when caching is disabled or no Redis
// client is available; a nil cache is simply skipped by the service.
func NewAvailabilityCache(rdb *redis.Client, cfg config.CacheConfig, log *zap.Logger, m *metrics.Booking) *AvailabilityCache {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.Default()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "avail"
	}
	return &AvailabilityCache{rdb: rdb, ttl: ttl, prefix: prefix, log: log, metrics: m}
}

func (c *AvailabilityCache) key(date string) string { return c.prefix + ":" + date }

// Get returns the cached availability of date.
func (c *AvailabilityCache) Get(ctx context.Context, date string) (Availability, bool) {
	raw, err := c.rdb.Get(ctx, c.key(date)).Result()
	if errors.Is(err, redis.Nil) {
		c.metrics.AvailabilityCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		c.metrics.AvailabilityCache.WithLabelValues("error").Inc()
		c.log.Warn("availability cache read failed", zap.String("date", date), zap.Error(err))
		return nil, false
	}
	var av Availability
	if err := json.Unmarshal([]byte(raw), &av); err != nil {
		c.metrics.AvailabilityCache.WithLabelValues("error").Inc()
		c.log.Warn("availability cache entry corrupt", zap.String("date", date), zap.Error(err))
		return nil, false
	}
	c.metrics.AvailabilityCache.WithLabelValues("hit").Inc()
	return av, true
}

// Set stores av for date.
func (c *AvailabilityCache) Set(ctx context.Context, date string, av Availability) {
	b, err := json.Marshal(av)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(date), string(b), c.ttl).Err(); err != nil {
		c.log.Warn("availability cache write failed", zap.String("date", date), zap.Error(err))
	}
}

// Invalidate drops the entry for date.
func (c *AvailabilityCache) Invalidate(ctx context.Context, date string) {
	if err := c.rdb.Del(ctx, c.key(date)).Err(); err != nil {
		c.log.Warn("availability cache invalidate failed", zap.String("date", date), zap.Error(err))
	}
}
