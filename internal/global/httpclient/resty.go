package httpclient

import (
	"instavision/config"
	"instavision/internal/global/sentry/tracing"
	"time"

	"github.com/go-resty/resty/v2"
)

// New 创建出站 HTTP 客户端，失败时对 5xx 与网络错误重试
func New(timeout time.Duration) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	if tracing.IsEnabled() && config.Get().Sentry.Tracing.TraceHTTPCalls {
		tracing.SetupResty(client)
	}
	return client
}
