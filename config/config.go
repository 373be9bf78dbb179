package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Log         LogConfig         `mapstructure:"log"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Payment     PaymentConfig     `mapstructure:"payment"`
	Classifier  ClassifierConfig  `mapstructure:"classifier"`
	MQ          MQConfig          `mapstructure:"mq"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Reconcile   ReconcileConfig   `mapstructure:"reconcile"`
	Moderation  ModerationConfig  `mapstructure:"moderation"`
	Badge       BadgeConfig       `mapstructure:"badge"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"` // sqlite 文件路径
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

// DSN 返回 postgres 连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string        `mapstructure:"secret"`
	ExpireHours int           `mapstructure:"expire_hours"`
	Issuer      string        `mapstructure:"issuer"`
	Leeway      time.Duration `mapstructure:"leeway"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // json, console
}

// Window 一个滑动窗口限流规则
type Window struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type RateLimitConfig struct {
	ItemCreate Window  `mapstructure:"item_create"`
	Report     Window  `mapstructure:"report"`
	Auth       Window  `mapstructure:"auth"`
	Unlock     Window  `mapstructure:"unlock"`
	Purchase   Window  `mapstructure:"purchase"`
	AuthRPS    float64 `mapstructure:"auth_rps"`
	AuthBurst  int     `mapstructure:"auth_burst"`
}

type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// TokenPackage 代币套餐
type TokenPackage struct {
	ID       string `mapstructure:"id" json:"id"`
	Tokens   int    `mapstructure:"tokens" json:"tokens"`
	Amount   int64  `mapstructure:"amount" json:"amount"` // 最小货币单位（如 paise）
	Currency string `mapstructure:"currency" json:"currency"`
}

type PaymentConfig struct {
	BaseURL       string         `mapstructure:"base_url"`
	KeyID         string         `mapstructure:"key_id"`
	KeySecret     string         `mapstructure:"key_secret"`
	WebhookSecret string         `mapstructure:"webhook_secret"` // 与 KeySecret 分开配置
	Currency      string         `mapstructure:"currency"`
	Timeout       time.Duration  `mapstructure:"timeout"`
	Packages      []TokenPackage `mapstructure:"packages"`
}

// Package 按 ID 查找套餐
func (p PaymentConfig) Package(id string) (TokenPackage, bool) {
	for _, pkg := range p.Packages {
		if pkg.ID == id {
			return pkg, true
		}
	}
	return TokenPackage{}, false
}

type ClassifierConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type NotifyConfig struct {
	QueueSize int `mapstructure:"queue_size"`
	Workers   int `mapstructure:"workers"`
}

type ReconcileConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

type ModerationConfig struct {
	DuplicateWindow time.Duration `mapstructure:"duplicate_window"`
	AdminEmails     []string      `mapstructure:"admin_emails"` // 注册时授予管理员的邮箱
}

type BadgeConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// Load 读取 config/config.yaml，并允许 CAMPUS_ 前缀的环境变量覆盖
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CAMPUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验必须项
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	for _, p := range c.Payment.Packages {
		if p.ID == "" || p.Tokens <= 0 || p.Amount <= 0 {
			return fmt.Errorf("invalid token package %+v", p)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "campuszon")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "campuszon.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("jwt.issuer", "campuszon")
	v.SetDefault("jwt.leeway", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")

	v.SetDefault("ratelimit.item_create.limit", 10)
	v.SetDefault("ratelimit.item_create.window", time.Hour)
	v.SetDefault("ratelimit.report.limit", 10)
	v.SetDefault("ratelimit.report.window", time.Hour)
	v.SetDefault("ratelimit.auth.limit", 20)
	v.SetDefault("ratelimit.auth.window", 15*time.Minute)
	v.SetDefault("ratelimit.unlock.limit", 30)
	v.SetDefault("ratelimit.unlock.window", time.Minute)
	v.SetDefault("ratelimit.purchase.limit", 10)
	v.SetDefault("ratelimit.purchase.window", time.Minute)
	v.SetDefault("ratelimit.auth_rps", 5.0)
	v.SetDefault("ratelimit.auth_burst", 10)

	v.SetDefault("idempotency.ttl", 24*time.Hour)

	v.SetDefault("payment.base_url", "https://api.razorpay.com/v1")
	v.SetDefault("payment.currency", "INR")
	v.SetDefault("payment.timeout", 15*time.Second)

	v.SetDefault("classifier.timeout", 5*time.Second)

	v.SetDefault("mq.exchange", "campus.events")

	v.SetDefault("notify.queue_size", 1024)
	v.SetDefault("notify.workers", 2)

	v.SetDefault("reconcile.interval", time.Minute)
	v.SetDefault("reconcile.batch_size", 100)

	v.SetDefault("moderation.duplicate_window", 10*time.Minute)
	v.SetDefault("badge.ttl", 30*time.Second)

	v.SetDefault("tracing.service_name", "campuszon-api")
	v.SetDefault("tracing.sample_ratio", 1.0)
}
