package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	l, err := New(nil, 2, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	r, err := l.Get(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, r.Reached)
	require.EqualValues(t, 2, r.Limit)
	require.EqualValues(t, 1, r.Remaining)

	r, err = l.Get(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, r.Reached)
	require.EqualValues(t, 0, r.Remaining)

	r, err = l.Get(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, r.Reached)
	require.Greater(t, r.Reset, time.Now().Unix())

	// 其他 key 不受影响
	r, err = l.Get(ctx, "5.6.7.8")
	require.NoError(t, err)
	require.False(t, r.Reached)
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l, err := New(client, 3, 15*time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r, err := l.Get(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.False(t, r.Reached)
		require.EqualValues(t, 2-i, r.Remaining)
	}
	r, err := l.Get(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, r.Reached)
	require.EqualValues(t, 3, r.Limit)

	key := KeyPrefix + ":10.0.0.1"
	require.True(t, mr.Exists(key))
	require.True(t, mr.TTL(key) > 0)

	mr.FastForward(15 * time.Minute)
	r, err = l.Get(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, r.Reached)
}
