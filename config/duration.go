package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Duration 兼容 time.ParseDuration 的写法，另外支持天数后缀（7d）和纯数字秒数（3600）
type Duration time.Duration

func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, errors.Errorf("invalid duration %q", s)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// Decode 供 envconfig 解析环境变量
func (d *Duration) Decode(value string) error {
	v, err := ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalText 供 viper 解析配置文件
func (d *Duration) UnmarshalText(text []byte) error {
	return d.Decode(string(text))
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
