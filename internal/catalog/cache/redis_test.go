package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func testSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Products: []domain.Product{
			{
				ID:                uuid.New(),
				Name:              "Sharbati Wheat Atta",
				Category:          "Flour",
				Unit:              "Kg",
				Price:             decimal.NewFromInt(42),
				Stock:             decimal.NewFromInt(95),
				LowStockThreshold: decimal.NewFromInt(10),
				Status:            domain.StatusActive,
			},
		},
		FetchedAt: time.Now(),
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	snapshot := testSnapshot()

	data, _ := json.Marshal(snapshot)
	mr.Set(snapshotKey, string(data))

	result, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	assert.Equal(t, snapshot.Products[0].ID, result.Products[0].ID)
	assert.True(t, result.Products[0].Price.Equal(decimal.NewFromInt(42)))
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGet_CorruptData(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Set(snapshotKey, "not json")

	_, err := cache.Get(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_Then_Get(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	snapshot := testSnapshot()

	require.NoError(t, cache.Set(ctx, snapshot))

	result, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot.Products[0].Name, result.Products[0].Name)
}

func TestSet_HasTTL(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, cache.Set(context.Background(), testSnapshot()))

	ttl := mr.TTL(snapshotKey)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, cache.baseTTL+10*time.Second)
}

func TestDelete(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, testSnapshot()))
	require.NoError(t, cache.Delete(ctx))

	_, err := cache.Get(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
