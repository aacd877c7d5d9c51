package tracing

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
)

// RedisHook 为 redis 命令创建 Sentry 子 span
type RedisHook struct {
	slowThreshold time.Duration
}

func NewRedisHook(slowThresholdMs int) *RedisHook {
	return &RedisHook{slowThreshold: time.Duration(slowThresholdMs) * time.Millisecond}
}

func (h *RedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *RedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		span, ctx := h.start(ctx, "db.redis", strings.ToUpper(cmd.Name()))
		err := next(ctx, cmd)
		h.finish(span, err)
		return err
	}
}

func (h *RedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		names := make([]string, 0, 3)
		for i, cmd := range cmds {
			if i == 3 {
				names = append(names, "...")
				break
			}
			names = append(names, strings.ToUpper(cmd.Name()))
		}
		span, ctx := h.start(ctx, "db.redis.pipeline", "PIPELINE: "+strings.Join(names, ", "))
		if span != nil {
			span.SetData("redis.pipeline_length", len(cmds))
		}
		err := next(ctx, cmds)
		h.finish(span, err)
		return err
	}
}

func (h *RedisHook) start(ctx context.Context, op, desc string) (*sentry.Span, context.Context) {
	parent := sentry.SpanFromContext(ctx)
	if parent == nil {
		return nil, ctx
	}
	span := parent.StartChild(op)
	span.Description = desc
	span.SetData("db.system", "redis")
	return span, span.Context()
}

func (h *RedisHook) finish(span *sentry.Span, err error) {
	if span == nil {
		return
	}
	if h.slowThreshold > 0 && time.Since(span.StartTime) < h.slowThreshold {
		span.Sampled = sentry.SampledFalse
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("redis.error", err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Finish()
}
