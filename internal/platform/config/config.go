package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 CFODESK_DATABASE_DSN 覆盖 database.dsn
const EnvPrefix = "CFODESK"

// Config 全部运行时配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// EngineConfig 重分类相关的默认值
type EngineConfig struct {
	DefaultSite  string  `mapstructure:"default_site"`
	AlertWarnPct float64 `mapstructure:"alert_warn_pct"`
	AlertCritPct float64 `mapstructure:"alert_crit_pct"`
	MaxParallel  int     `mapstructure:"max_parallel"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("engine.default_site", "Globale")
	v.SetDefault("engine.alert_warn_pct", 15.0)
	v.SetDefault("engine.alert_crit_pct", 30.0)
	v.SetDefault("engine.max_parallel", 4)
}

// Load 读取配置：.env → 默认值 → 配置文件 → 环境变量
// path 为空时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	// .env 不存在是正常情况
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config.Load: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	if c.Engine.MaxParallel < 1 {
		return fmt.Errorf("config: engine.max_parallel must be >= 1, got %d", c.Engine.MaxParallel)
	}
	if c.Engine.AlertWarnPct < 0 || c.Engine.AlertCritPct < c.Engine.AlertWarnPct {
		return fmt.Errorf("config: alert thresholds must satisfy 0 <= warn (%v) <= crit (%v)",
			c.Engine.AlertWarnPct, c.Engine.AlertCritPct)
	}
	return nil
}
