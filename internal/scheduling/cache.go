package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// RedisSlotCache caches availability results per doctor. Each doctor has a
// version counter; invalidation bumps the version so stale entries simply
// expire instead of being scanned and deleted.
type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisSlotCache creates an availability cache. A nil client yields a
// nil cache, which callers treat as caching disabled.
func NewRedisSlotCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisSlotCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisSlotCache{client: client, ttl: ttl, logger: logger}
}

// Get returns cached slots for the doctor/key pair, if present.
func (c *RedisSlotCache) Get(ctx context.Context, doctorID, key string) ([]Slot, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, c.slotKey(ctx, doctorID, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("slot cache read failed", "error", err, "doctor_id", doctorID)
		}
		return nil, false
	}
	var slots []Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false
	}
	return slots, true
}

// Set stores slots for the doctor/key pair with the cache TTL.
func (c *RedisSlotCache) Set(ctx context.Context, doctorID, key string, slots []Slot) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.slotKey(ctx, doctorID, key), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("slot cache write failed", "error", err, "doctor_id", doctorID)
	}
}

// Invalidate drops all cached availability for the doctor by bumping its
// version counter.
func (c *RedisSlotCache) Invalidate(ctx context.Context, doctorID string) {
	if c == nil {
		return
	}
	if err := c.client.Incr(ctx, versionKey(doctorID)).Err(); err != nil {
		c.logger.Warn("slot cache invalidate failed", "error", err, "doctor_id", doctorID)
	}
}

func (c *RedisSlotCache) slotKey(ctx context.Context, doctorID, key string) string {
	ver, err := c.client.Get(ctx, versionKey(doctorID)).Int64()
	if err != nil && err != redis.Nil {
		ver = 0
	}
	return fmt.Sprintf("avail:%s:v%d:%s", doctorID, ver, key)
}

func versionKey(doctorID string) string {
	return "avail:ver:" + doctorID
}

var _ SlotCache = (*RedisSlotCache)(nil)
var _ CacheInvalidator = (*RedisSlotCache)(nil)
