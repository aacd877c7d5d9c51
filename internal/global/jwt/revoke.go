package jwt

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:user:"

// Revoker 记录用户的吊销时间点，之前签发的令牌一律失效
type Revoker interface {
	Revoke(ctx context.Context, userID uint) error
	IsRevoked(ctx context.Context, claims *Claims) (bool, error)
}

// RedisRevoker 标记的过期时间与令牌有效期一致，到期后旧令牌自然失效
type RedisRevoker struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisRevoker(client *redis.Client, ttl time.Duration) *RedisRevoker {
	return &RedisRevoker{client: client, ttl: ttl, now: time.Now}
}

func revokedKey(userID uint) string {
	return revokedKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

func (r *RedisRevoker) Revoke(ctx context.Context, userID uint) error {
	err := r.client.Set(ctx, revokedKey(userID), r.now().UnixMilli(), r.ttl).Err()
	return errors.Wrap(err, "mark user tokens revoked")
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	val, err := r.client.Get(ctx, revokedKey(claims.UserID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "read revocation mark")
	}
	revokedAt, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, errors.Wrap(err, "parse revocation mark")
	}
	if claims.IssuedAt == nil {
		return true, nil
	}
	// 标记为毫秒时间戳，同一毫秒内签发的令牌视为已吊销
	return claims.IssuedAt.UnixMilli() <= revokedAt, nil
}
