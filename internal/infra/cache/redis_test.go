package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/crm-bff-go/internal/domain"
	"github.com/boddenberg/crm-bff-go/internal/infra/cache"
)

func newRedisCache(t *testing.T) (*cache.Redis[domain.Dashboard], *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := cache.NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewRedis[domain.Dashboard](rdb, "crm", time.Minute, zap.NewNop()), mr
}

func TestRedis_RoundTrip(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	want := domain.Dashboard{
		Role:    domain.RoleEmployee,
		Year:    2025,
		Monthly: []domain.MonthlyMetric{{Month: "Jan", Leads: 2, Clients: 1, Revenue: 1000}},
		Changes: map[string]string{"leads": "0.0%"},
	}
	c.Set(ctx, "dashboard:EMPLOYEE:7:2025", want)

	assert.True(t, mr.Exists("crm:dashboard:EMPLOYEE:7:2025"))
	assert.Equal(t, time.Minute, mr.TTL("crm:dashboard:EMPLOYEE:7:2025"))

	got, ok := c.Get(ctx, "dashboard:EMPLOYEE:7:2025")
	require.True(t, ok)
	assert.Equal(t, want.Monthly, got.Monthly)
	assert.Equal(t, want.Changes, got.Changes)
}

func TestRedis_Expiry(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", domain.Dashboard{Year: 2025})
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedis_DeletePrefix(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "dashboard:MANAGER:1:2025", domain.Dashboard{})
	c.Set(ctx, "dashboard:MANAGER:2:2024", domain.Dashboard{})
	c.Set(ctx, "dashboard:EMPLOYEE:7:2025", domain.Dashboard{})

	c.DeletePrefix(ctx, "dashboard:MANAGER:")

	assert.False(t, mr.Exists("crm:dashboard:MANAGER:1:2025"))
	assert.False(t, mr.Exists("crm:dashboard:MANAGER:2:2024"))
	assert.True(t, mr.Exists("crm:dashboard:EMPLOYEE:7:2025"))

	c.Delete(ctx, "dashboard:EMPLOYEE:7:2025")
	assert.False(t, mr.Exists("crm:dashboard:EMPLOYEE:7:2025"))
}

func TestRedis_GarbageIsAMiss(t *testing.T) {
	c, mr := newRedisCache(t)
	require.NoError(t, mr.Set("crm:bad", "{not json"))

	_, ok := c.Get(context.Background(), "bad")
	assert.False(t, ok)
}

func TestRedis_OutageIsAMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c := cache.NewRedis[string](rdb, "crm", time.Minute, zap.NewNop())
	mr.Close()

	c.Set(context.Background(), "k", "v")
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := cache.NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
