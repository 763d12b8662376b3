package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Renal37/go-musthave-loyalty-ledger/internal/models"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * time.Second

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    defaultTTL,
	}
}

func (r *RedisCache) Get(ctx context.Context, customerID string) (*models.PointsSummary, error) {
	data, err := r.client.Get(ctx, cacheKey(customerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var summary models.PointsSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary failed: %w", err)
	}

	return &summary, nil
}

func (r *RedisCache) Set(ctx context.Context, customerID string, summary models.PointsSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary failed: %w", err)
	}

	if err := r.client.Set(ctx, cacheKey(customerID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (r *RedisCache) Delete(ctx context.Context, customerID string) error {
	if err := r.client.Del(ctx, cacheKey(customerID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func cacheKey(customerID string) string {
	return fmt.Sprintf("points:summary:%s", customerID)
}
