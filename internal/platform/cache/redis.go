package cache

import (
	"context"
	"fmt"

	"trustpay/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// Open connects to Redis and returns the client. The client is injected
// where needed, same as the database handle.
func Open(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}
