package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	Redis *redis.Client
	once  sync.Once
	err   error
)

// ConnectRedis opens the shared redis client. An empty url returns a nil
// client; callers fall back to process-local behaviour.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		slog.Warn("REDIS_URL not set, running without redis")
		return nil, nil
	}

	once.Do(func() {
		opts, parseErr := redis.ParseURL(url)
		if parseErr != nil {
			err = fmt.Errorf("parse REDIS_URL: %w", parseErr)
			return
		}

		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
			_ = client.Close()
			err = fmt.Errorf("failed to connect redis: %w", pingErr)
			return
		}

		Redis = client
	})

	return Redis, err
}
