// Package tracing 为 GORM、Redis 和 resty 客户端接入 Sentry 性能追踪
package tracing

import (
	"instavision/config"
)

// IsEnabled 检查 Sentry 追踪是否已启用
func IsEnabled() bool {
	return config.Get().Sentry.Dsn != ""
}
