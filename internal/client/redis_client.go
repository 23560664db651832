package client

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hospital-admin/internal/config"
	"hospital-admin/internal/util"
)

// NewRedisClient opens and pings a Redis connection for the shared
// rate-limit counters.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	util.Info("Connected to redis", util.String("addr", cfg.Addr))
	return rdb, nil
}
