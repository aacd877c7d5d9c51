package redis

import (
	"context"
	"instavision/config"
	"instavision/internal/global/sentry/tracing"
	"net"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// New 创建 redis 客户端并检查连通性；未配置 Host 时返回 nil
func New(ctx context.Context, cfg *config.Config) (*goredis.Client, error) {
	if !cfg.Redis.Enabled() {
		return nil, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if tracing.IsEnabled() {
		client.AddHook(tracing.NewRedisHook(cfg.Sentry.Tracing.RedisSlowThresholdMs))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}
