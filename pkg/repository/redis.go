package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/moonjewelry/pkg/config"
	"github.com/example/moonjewelry/pkg/models"
	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned by the Get* helpers when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

// NewRedisRepositoryFromClient wraps an existing client.
func NewRedisRepositoryFromClient(client *redis.Client, cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{client: client, config: cfg}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func jewelryKey(id uint) string {
	return fmt.Sprintf("jewelry:%d", id)
}

// CacheJewelry stores a product detail view for the configured TTL.
func (r *RedisRepository) CacheJewelry(ctx context.Context, j *models.Jewelry) error {
	ttl := r.config.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return r.SetJSON(ctx, jewelryKey(j.ID), j, ttl)
}

func (r *RedisRepository) GetJewelryCache(ctx context.Context, id uint) (*models.Jewelry, error) {
	var j models.Jewelry
	if err := r.GetJSON(ctx, jewelryKey(id), &j); err != nil {
		return nil, err
	}
	AttachParent(&j)
	return &j, nil
}

func (r *RedisRepository) InvalidateJewelry(ctx context.Context, id uint) error {
	return r.Del(ctx, jewelryKey(id))
}
