package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 ALERTX_SERVER_PORT
const EnvPrefix = "ALERTX"

// Config 应用配置
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Triage     TriageConfig     `mapstructure:"triage"`
	Estimator  EstimatorConfig  `mapstructure:"estimator"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Pool       PoolConfig       `mapstructure:"pool"`
	Facilities []FacilityConfig `mapstructure:"facilities"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Tracking   TrackingConfig   `mapstructure:"tracking"`
	Lmstfy     LmstfyConfig     `mapstructure:"lmstfy"`
	Workers    []WorkerConfig   `mapstructure:"workers"`
	Profiles   []ProfileConfig  `mapstructure:"profiles"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// TriageConfig backend: local 仅关键词；remote 先取语言分析
type TriageConfig struct {
	Backend  string        `mapstructure:"backend"`
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type EstimatorConfig struct {
	AvgSpeedKmh float64 `mapstructure:"avg_speed_kmh"`
	MinMinutes  int     `mapstructure:"eta_min"`
	MaxMinutes  int     `mapstructure:"eta_max"`
}

type DispatchConfig struct {
	PoolTimeout time.Duration  `mapstructure:"pool_timeout"`
	Fallback    FallbackConfig `mapstructure:"fallback"`
}

type FallbackConfig struct {
	Enabled    bool  `mapstructure:"enabled"`
	Seed       int64 `mapstructure:"seed"`
	MinMinutes int   `mapstructure:"eta_min"`
	MaxMinutes int   `mapstructure:"eta_max"`
}

// PoolConfig driver: static 使用 units；redis 使用 GEO 索引，units 作为启动时注册的初始车辆
type PoolConfig struct {
	Driver         string       `mapstructure:"driver"`
	KeyPrefix      string       `mapstructure:"key_prefix"`
	SearchRadiusKm float64      `mapstructure:"search_radius_km"`
	Units          []UnitConfig `mapstructure:"units"`
}

type UnitConfig struct {
	ID        string  `mapstructure:"id"`
	Class     string  `mapstructure:"class"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

type FacilityConfig struct {
	ID        string  `mapstructure:"id"`
	Name      string  `mapstructure:"name"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

// StorageConfig driver: memory | sqlite | mysql | postgres
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// TrackingConfig feed: local | redis
type TrackingConfig struct {
	Feed        string        `mapstructure:"feed"`
	PollWaitMax time.Duration `mapstructure:"poll_wait_max"`
}

type LmstfyConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Namespace   string `mapstructure:"namespace"`
	Token       string `mapstructure:"token"`
	NotifyQueue string `mapstructure:"notify_queue"`
}

type WorkerConfig struct {
	Name       string           `mapstructure:"name"`
	QueueName  string           `mapstructure:"queue_name"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
}

type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`
	Rate         time.Duration `mapstructure:"rate"`
	Timeout      time.Duration `mapstructure:"timeout"`
	TTR          time.Duration `mapstructure:"ttr"`
	ErrorBackoff time.Duration `mapstructure:"error_backoff"`
}

type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`
	BufferSize int           `mapstructure:"buffer_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ProfileConfig 内存档案预置（storage.driver=memory 时使用）
type ProfileConfig struct {
	RequesterID     string          `mapstructure:"requester_id"`
	Name            string          `mapstructure:"name"`
	Age             int             `mapstructure:"age"`
	KnownConditions []string        `mapstructure:"known_conditions"`
	Contacts        []ContactConfig `mapstructure:"contacts"`
}

type ContactConfig struct {
	Name     string `mapstructure:"name"`
	Phone    string `mapstructure:"phone"`
	Relation string `mapstructure:"relation"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "alertx")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("triage.backend", "local")
	v.SetDefault("triage.timeout", 3*time.Second)

	v.SetDefault("estimator.avg_speed_kmh", 40.0)
	v.SetDefault("estimator.eta_min", 5)
	v.SetDefault("estimator.eta_max", 30)

	v.SetDefault("dispatch.pool_timeout", 2*time.Second)
	v.SetDefault("dispatch.fallback.enabled", true)
	v.SetDefault("dispatch.fallback.seed", 1)
	v.SetDefault("dispatch.fallback.eta_min", 8)
	v.SetDefault("dispatch.fallback.eta_max", 15)

	v.SetDefault("pool.driver", "static")
	v.SetDefault("pool.key_prefix", "alertx:units")
	v.SetDefault("pool.search_radius_km", 50.0)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.sqlite_path", "alertx.db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("tracking.feed", "local")
	v.SetDefault("tracking.poll_wait_max", 30*time.Second)

	v.SetDefault("lmstfy.enabled", false)
	v.SetDefault("lmstfy.port", 7777)
	v.SetDefault("lmstfy.notify_queue", "contact_alerts")
}

// Load 加载配置：默认值 < 配置文件 < ALERTX_* 环境变量
// configPath 为空时查找 config/config.yaml，文件不存在则只用默认值
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}
	return &cfg, nil
}

// Validate 验证配置一致性
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Triage.Backend {
	case "local":
	case "remote":
		if c.Triage.Endpoint == "" {
			return fmt.Errorf("triage endpoint is required for remote backend")
		}
	default:
		return fmt.Errorf("unknown triage backend: %q", c.Triage.Backend)
	}

	if c.Estimator.AvgSpeedKmh <= 0 {
		return fmt.Errorf("estimator avg_speed_kmh must be positive")
	}
	if c.Estimator.MinMinutes <= 0 || c.Estimator.MinMinutes > c.Estimator.MaxMinutes {
		return fmt.Errorf("estimator eta range invalid: min=%d max=%d", c.Estimator.MinMinutes, c.Estimator.MaxMinutes)
	}
	if fb := c.Dispatch.Fallback; fb.Enabled && (fb.MinMinutes <= 0 || fb.MinMinutes > fb.MaxMinutes) {
		return fmt.Errorf("fallback eta range invalid: min=%d max=%d", fb.MinMinutes, fb.MaxMinutes)
	}

	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for sqlite storage")
		}
	case "mysql", "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("dsn is required for %s storage", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	switch c.Pool.Driver {
	case "static", "redis":
	default:
		return fmt.Errorf("unknown pool driver: %q", c.Pool.Driver)
	}
	switch c.Tracking.Feed {
	case "local", "redis":
	default:
		return fmt.Errorf("unknown tracking feed: %q", c.Tracking.Feed)
	}
	if c.NeedsRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required for redis pool or feed")
	}

	if c.Lmstfy.Enabled {
		if c.Lmstfy.Host == "" || c.Lmstfy.Token == "" || c.Lmstfy.Namespace == "" {
			return fmt.Errorf("lmstfy host, namespace and token are required")
		}
	} else if len(c.Workers) > 0 {
		return fmt.Errorf("workers require lmstfy to be enabled")
	}
	return nil
}

// NeedsRedis 车辆池或推送使用 Redis
func (c *Config) NeedsRedis() bool {
	return c.Pool.Driver == "redis" || c.Tracking.Feed == "redis"
}
