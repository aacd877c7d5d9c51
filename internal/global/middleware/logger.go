package middleware

import (
	"instavision/internal/global/logger"
	"instavision/internal/global/response"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger 访问日志；响应体可能含令牌，不记录
func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", status,
			"latency", time.Since(startTime).String(),
			"bytes", c.Writer.Size(),
		}
		if v, ok := c.Get(response.ErrorContextKey); ok {
			if err, ok := v.(error); ok {
				attrs = append(attrs, "error", err.Error())
			}
		}

		l := logger.WithContext(log, c)
		switch {
		case status >= 500:
			l.Error("HTTP Request", attrs...)
		case status >= 400:
			l.Warn("HTTP Request", attrs...)
		default:
			l.Info("HTTP Request", attrs...)
		}
	}
}
