package database

import (
	"context"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/authcore/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Redis Redis连接, 内存模式下附带 miniredis 实例
type Redis struct {
	*redis.Client
	mini *miniredis.Miniredis
}

// OpenRedis 打开Redis连接
func OpenRedis(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	if cfg.Mode == "memory" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start in-memory redis: %w", err)
		}
		return &Redis{
			Client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
			mini:   mr,
		}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &Redis{Client: client}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	if r == nil {
		return nil
	}
	err := r.Client.Close()
	if r.mini != nil {
		r.mini.Close()
	}
	return err
}
