package redis

import (
	"context"
	"time"

	"bantudesa/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	pingAttempts = 5
	pingWait     = 3 * time.Second
)

var Module = fx.Module("redis",
	fx.Provide(New),
)

// New never fails: reference generation degrades to timestamp codes while
// Redis is down, so an unreachable server is logged and the client returned.
func New(lc fx.Lifecycle, c *config.Config) *redis.Client {
	log := zap.L().With(
		zap.String("addr", c.Redis.Addr),
		zap.Int("db", c.Redis.DB),
		zap.Int("pool_size", c.Redis.PoolSize),
		zap.Duration("pool_timeout", c.Redis.PoolTimeout),
	)

	rdb := redis.NewClient(&redis.Options{
		Addr:        c.Redis.Addr,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		PoolSize:    c.Redis.PoolSize,
		PoolTimeout: c.Redis.PoolTimeout,
	})

	if err := waitReady(context.Background(), rdb, pingAttempts, pingWait, log); err != nil {
		log.Error("[Redis] Giving up on Redis, donation references fall back to timestamp codes", zap.Error(err))
	} else {
		log.Info("[Redis] Connected to Redis")
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})

	return rdb
}

func waitReady(ctx context.Context, rdb redis.UniversalClient, attempts int, wait time.Duration, log *zap.Logger) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = rdb.Ping(ctx).Err(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		log.Warn("[Redis] Redis not ready, retrying", zap.Int("retry", i+1), zap.Duration("wait", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
