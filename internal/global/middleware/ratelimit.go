package middleware

import (
	"instavision/internal/global/response"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
)

// RateLimit 按客户端 IP 计数，只作用于 prefix 下的请求（含未匹配的路由）；计数器不可用时放行
func RateLimit(instance *limiter.Limiter, prefix string, log *slog.Logger) gin.HandlerFunc {
	limit := mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			response.Fail(c, response.ErrTooManyRequests)
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			log.Error("rate limiter unavailable", "error", err)
			// 之后 mgin 会 Abort，这里先把后续处理执行完
			c.Next()
		}),
	)
	prefix = "/" + strings.Trim(prefix, "/")
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if prefix != "/" && path != prefix && !strings.HasPrefix(path, prefix+"/") {
			c.Next()
			return
		}
		limit(c)
	}
}
