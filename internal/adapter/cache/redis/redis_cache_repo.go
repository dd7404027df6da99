package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/discovery-service/internal/port/cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type pageCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisClient connects and pings within five seconds.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Address, err)
	}
	logger.Info("connected to redis", zap.String("address", cfg.Address), zap.Int("db", cfg.DB))
	return rdb, nil
}

func NewCacheRepository(client *redis.Client, logger *zap.Logger) cache.CacheRepository {
	return &pageCache{client: client, logger: logger.Named("redis_cache")}
}

func (r *pageCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("pageCache.Get for key '%s': %w", key, err)
	}
	return val, nil
}

func (r *pageCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("pageCache.Set for key '%s': %w", key, err)
	}
	r.logger.Debug("cached", zap.String("key", key), zap.Int("bytes", len(value)), zap.Duration("ttl", ttl))
	return nil
}

func (r *pageCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("pageCache.Delete for key '%s': %w", key, err)
	}
	return nil
}
