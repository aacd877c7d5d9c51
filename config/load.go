package config

import (
	"instavision/tools"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var current atomic.Pointer[Config]

// Init 加载 .env、配置文件与环境变量，失败直接 panic
func Init() {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	tools.PanicOnErr(err)
	Set(cfg)
}

// Get 返回进程级配置，未初始化时返回默认配置
func Get() *Config {
	if cfg := current.Load(); cfg != nil {
		return cfg
	}
	cfg := Default()
	current.CompareAndSwap(nil, cfg)
	return current.Load()
}

// Set 替换进程级配置，测试中也用它注入配置
func Set(cfg *Config) {
	current.Store(cfg)
}

// Default 返回各项默认值
func Default() *Config {
	return &Config{
		Host:        "0.0.0.0",
		Port:        "3000",
		Prefix:      "api",
		Mode:        ModeDebug,
		CorsOrigin:  "*",
		FrontendURL: "http://localhost:3000",
		BodyLimitMB: 10,
		// 默认信任内网与本机的一跳代理，客户端 IP 取 X-Forwarded-For 中最后一个非内网地址
		Proxies: []string{
			"127.0.0.0/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16",
			"::1/128", "fc00::/7",
		},
		Database: Database{
			Driver:          "mysql",
			Host:            "127.0.0.1",
			Port:            "3306",
			Name:            "instavision",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Redis: Redis{Port: "6379"},
		JWT: JWT{
			ExpiresIn: Duration(7 * 24 * time.Hour),
		},
		Security: Security{
			BcryptCost:     10,
			PasswordLength: 12,
		},
		RateLimit: RateLimit{
			Max:    100,
			Window: 15 * time.Minute,
		},
		Email: Email{
			Transport: "smtp",
			Host:      "smtp.gmail.com",
			Port:      "587",
			Timeout:   15 * time.Second,
		},
		Kafka: Kafka{Topic: "user.events"},
		Log: Log{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
		},
	}
}

// Load 依次应用默认值、配置文件（可选）和环境变量
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := Default()

	if path == "" && tools.FileExist("config.yaml") {
		path = "config.yaml"
	}
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
		hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		))
		if err := v.Unmarshal(cfg, hook); err != nil {
			return nil, errors.Wrap(err, "decode config file")
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, errors.Wrap(err, "process env")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Mode != ModeDebug && c.Mode != ModeRelease {
		return errors.Errorf("unknown mode %q", c.Mode)
	}
	if c.JWT.Secret == "" {
		if c.Mode == ModeRelease {
			return errors.New("JWT_SECRET is required in release mode")
		}
		c.JWT.Secret = "dev-secret-change-me"
	}
	if c.JWT.ExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return errors.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}
