package ratelimit

import (
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// KeyPrefix 计数键前缀，redis 中的键为 ratelimit:<ip>
const KeyPrefix = "ratelimit"

// New 固定窗口限流器；client 不为 nil 时多实例共享 redis 计数，否则使用进程内存储
func New(client *redis.Client, max int, window time.Duration) (*limiter.Limiter, error) {
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	if client == nil {
		store := memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          KeyPrefix,
			CleanUpInterval: window,
		})
		return limiter.New(store, rate), nil
	}

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   KeyPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create redis rate limit store")
	}
	return limiter.New(store, rate), nil
}
