package config

import (
	"time"
)

type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
)

type Config struct {
	Host        string    `envconfig:"HOST" mapstructure:"host"`
	Port        string    `envconfig:"PORT" mapstructure:"port"`
	Prefix      string    `envconfig:"PREFIX" mapstructure:"prefix"`
	Mode        Mode      `envconfig:"MODE" mapstructure:"mode"`
	CorsOrigin  string    `envconfig:"CORS_ORIGIN" mapstructure:"cors_origin"`
	FrontendURL string    `envconfig:"FRONTEND_URL" mapstructure:"frontend_url"`
	BodyLimitMB int64     `envconfig:"BODY_LIMIT_MB" mapstructure:"body_limit_mb"`
	Proxies     []string  `envconfig:"TRUSTED_PROXIES" mapstructure:"trusted_proxies"`
	Database    Database  `mapstructure:"database"`
	Redis       Redis     `mapstructure:"redis"`
	JWT         JWT       `mapstructure:"jwt"`
	Security    Security  `mapstructure:"security"`
	RateLimit   RateLimit `envconfig:"RATE_LIMIT" mapstructure:"rate_limit"`
	Email       Email     `mapstructure:"email"`
	Kafka       Kafka     `mapstructure:"kafka"`
	S3          S3        `mapstructure:"s3"`
	Sentry      Sentry    `mapstructure:"sentry"`
	Log         Log       `mapstructure:"log"`
}

// 嵌套结构体的环境变量名为 父字段_字段名，例如 DATABASE_MAX_OPEN_CONNS
type Database struct {
	Driver          string        `split_words:"true" mapstructure:"driver"` // mysql, postgres
	URL             string        `split_words:"true" mapstructure:"url"`
	Host            string        `split_words:"true" mapstructure:"host"`
	Port            string        `split_words:"true" mapstructure:"port"`
	Username        string        `split_words:"true" mapstructure:"username"`
	Password        string        `split_words:"true" mapstructure:"password"`
	Name            string        `split_words:"true" mapstructure:"name"`
	SSLMode         string        `split_words:"true" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `split_words:"true" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `split_words:"true" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `split_words:"true" mapstructure:"conn_max_lifetime"`
}

type Redis struct {
	Host     string `split_words:"true" mapstructure:"host"`
	Port     string `split_words:"true" mapstructure:"port"`
	Password string `split_words:"true" mapstructure:"password"`
	DB       int    `split_words:"true" mapstructure:"db"`
}

// Enabled reports whether a redis server is configured.
func (r Redis) Enabled() bool {
	return r.Host != ""
}

type JWT struct {
	Secret     string   `split_words:"true" mapstructure:"secret"`
	ExpiresIn  Duration `split_words:"true" mapstructure:"expires_in"` // 2h、7d 或秒数
	Revocation bool     `split_words:"true" mapstructure:"revocation"` // 需要 redis
}

type Security struct {
	BcryptCost     int `split_words:"true" mapstructure:"bcrypt_cost"`
	PasswordLength int `split_words:"true" mapstructure:"password_length"`
}

type RateLimit struct {
	Max    int           `split_words:"true" mapstructure:"max"`
	Window time.Duration `split_words:"true" mapstructure:"window"`
}

type Email struct {
	Transport   string        `split_words:"true" mapstructure:"transport"` // smtp, http, log
	Host        string        `split_words:"true" mapstructure:"host"`
	Port        string        `split_words:"true" mapstructure:"port"`
	User        string        `split_words:"true" mapstructure:"user"`
	Pass        string        `split_words:"true" mapstructure:"pass"`
	From        string        `split_words:"true" mapstructure:"from"`
	Timeout     time.Duration `split_words:"true" mapstructure:"timeout"` // 单封邮件的 SMTP 会话上限
	APIEndpoint string        `split_words:"true" mapstructure:"api_endpoint"`
	APIKey      string        `split_words:"true" mapstructure:"api_key"`
}

type Kafka struct {
	Brokers []string `split_words:"true" mapstructure:"brokers"`
	Topic   string   `split_words:"true" mapstructure:"topic"`
}

type S3 struct {
	Endpoint        string `split_words:"true" mapstructure:"endpoint"`
	BaseURL         string `split_words:"true" mapstructure:"base_url"`
	Bucket          string `split_words:"true" mapstructure:"bucket"`
	Region          string `split_words:"true" mapstructure:"region"`
	AccessKey       string `split_words:"true" mapstructure:"access_key"`
	SecretAccessKey string `split_words:"true" mapstructure:"secret_access_key"`
	Prefix          string `split_words:"true" mapstructure:"prefix"`
	UsePathStyle    bool   `split_words:"true" mapstructure:"use_path_style"`
}

// Enabled reports whether avatar storage is configured.
func (s S3) Enabled() bool {
	return s.Bucket != ""
}

type Sentry struct {
	Dsn         string        `split_words:"true" mapstructure:"dsn"`
	Environment string        `split_words:"true" mapstructure:"environment"`
	SampleRate  float64       `split_words:"true" mapstructure:"sample_rate"`
	Tracing     SentryTracing `mapstructure:"tracing"`
}

type SentryTracing struct {
	TraceHTTPCalls       bool `split_words:"true" mapstructure:"trace_http_calls"`
	DBSlowThresholdMs    int  `split_words:"true" mapstructure:"db_slow_threshold_ms"`
	RedisSlowThresholdMs int  `split_words:"true" mapstructure:"redis_slow_threshold_ms"`
}

type Log struct {
	FilePath   string `split_words:"true" mapstructure:"file_path"`   // 日志文件路径
	Level      string `split_words:"true" mapstructure:"level"`       // 日志级别：debug, info, warn, error
	MaxSize    int    `split_words:"true" mapstructure:"max_size"`    // 日志文件最大大小（MB）
	MaxBackups int    `split_words:"true" mapstructure:"max_backups"` // 保留的旧日志文件数
	MaxAge     int    `split_words:"true" mapstructure:"max_age"`     // 日志文件保留天数
	Compress   bool   `split_words:"true" mapstructure:"compress"`    // 是否压缩旧日志文件
}
