package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/armangral/atta-chakki-tracker-app/internal/catalog/domain"
	"github.com/redis/go-redis/v9"
)

const snapshotKey = "catalog:snapshot"

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 30 * time.Second,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context) (*domain.Snapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var snapshot domain.Snapshot
	if err2 := json.Unmarshal(data, &snapshot); err2 != nil {
		return nil, fmt.Errorf("unmarshal snapshot failed: %w", err2)
	}

	return &snapshot, nil
}

func (r RedisCache) Set(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(10)) * time.Second
	ttl := r.baseTTL + jitter
	if ret := r.client.Set(ctx, snapshotKey, string(data), ttl); ret.Err() != nil {
		return fmt.Errorf("redis set failed: %w", ret.Err())
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, snapshotKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}
