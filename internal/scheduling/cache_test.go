package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisSlotCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSlotCache(client, time.Minute, nil)
}

func TestSlotCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	slots := []Slot{{
		DoctorID: "DOC001",
		Start:    testDay.Add(9 * time.Hour),
		End:      testDay.Add(9*time.Hour + 15*time.Minute),
	}}

	_, ok := cache.Get(ctx, "DOC001", "2026-03-10:2026-03-10:15")
	assert.False(t, ok)

	cache.Set(ctx, "DOC001", "2026-03-10:2026-03-10:15", slots)

	got, ok := cache.Get(ctx, "DOC001", "2026-03-10:2026-03-10:15")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "DOC001", got[0].DoctorID)
	assert.True(t, got[0].Start.Equal(slots[0].Start))
}

func TestSlotCacheInvalidate(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "DOC001", "k", []Slot{{DoctorID: "DOC001"}})
	_, ok := cache.Get(ctx, "DOC001", "k")
	require.True(t, ok)

	cache.Invalidate(ctx, "DOC001")

	_, ok = cache.Get(ctx, "DOC001", "k")
	assert.False(t, ok)
}

func TestSlotCacheInvalidateIsPerDoctor(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "DOC001", "k", []Slot{{DoctorID: "DOC001"}})
	cache.Set(ctx, "DOC002", "k", []Slot{{DoctorID: "DOC002"}})

	cache.Invalidate(ctx, "DOC001")

	_, ok := cache.Get(ctx, "DOC001", "k")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "DOC002", "k")
	assert.True(t, ok)
}

func TestNilClientDisablesCache(t *testing.T) {
	assert.Nil(t, NewRedisSlotCache(nil, time.Minute, nil))
}

func TestCachedEmptyResultIsServed(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	// A fully booked day caches an empty list, which is still a hit.
	cache.Set(ctx, "DOC001", "k", []Slot{})
	got, ok := cache.Get(ctx, "DOC001", "k")
	assert.True(t, ok)
	assert.Empty(t, got)
}
