// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 服务的全部配置：先读 YAML 文件，再用环境变量覆盖
type Config struct {
	App   AppConfig   `yaml:"app"`
	Infra InfraConfig `yaml:"infra"`
}

type AppConfig struct {
	Name     string `yaml:"name" env:"APP_NAME"`
	Port     int    `yaml:"port" env:"APP_PORT"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// 邮箱白名单只在请求入口换算成角色一次
	AdminEmails   []string `yaml:"admin_emails" env:"ADMIN_EMAILS" envSeparator:","`
	StaffEmails   []string `yaml:"staff_emails" env:"STAFF_EMAILS" envSeparator:","`
	InternalToken string   `yaml:"internal_token" env:"INTERNAL_TOKEN"`

	Store  StoreConfig  `yaml:"store" envPrefix:"STORE_"`
	Notify NotifyConfig `yaml:"notify" envPrefix:"NOTIFY_"`

	// Merchants 启动时写入商户存储，供 memory/redis 后端的本地环境使用
	Merchants []MerchantSeed `yaml:"merchants"`
}

type MerchantSeed struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	AccentColor string `yaml:"accent_color"`
	Active      bool   `yaml:"active"`
}

type StoreConfig struct {
	Backend     string        `yaml:"backend" env:"BACKEND"` // memory | mysql | redis
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	AutoMigrate bool          `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

type NotifyConfig struct {
	Backends      []string `yaml:"backends" env:"BACKENDS" envSeparator:","` // log | kafka | webhook
	WebhookURL    string   `yaml:"webhook_url" env:"WEBHOOK_URL"`
	WebhookSecret string   `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
}

type InfraConfig struct {
	MySQL  MySQLConfig  `yaml:"mysql" envPrefix:"MYSQL_"`
	Redis  RedisConfig  `yaml:"redis" envPrefix:"REDIS_"`
	Kafka  KafkaConfig  `yaml:"kafka" envPrefix:"KAFKA_"`
	Jaeger JaegerConfig `yaml:"jaeger" envPrefix:"JAEGER_"`
	Nacos  NacosConfig  `yaml:"nacos" envPrefix:"NACOS_"`
}

type MySQLConfig struct {
	DSN             string        `yaml:"dsn" env:"DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"BROKERS" envSeparator:","`
	Topic   string   `yaml:"topic" env:"TOPIC"`
	GroupID string   `yaml:"group_id" env:"GROUP_ID"`
}

type JaegerConfig struct {
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`
}

type NacosConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Addrs     string `yaml:"addrs" env:"SERVER_ADDRS"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	Group     string `yaml:"group" env:"GROUP"`
}

const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
	StoreRedis  = "redis"
)

var current atomic.Pointer[Config]

// DefaultConfig 本地开发可直接运行的默认值
func DefaultConfig() Config {
	return Config{
		App: AppConfig{
			Name:     "engine-service",
			Port:     8080,
			LogLevel: "info",
			Store:    StoreConfig{Backend: StoreMemory, Timeout: 3 * time.Second},
			Notify:   NotifyConfig{Backends: []string{"log"}},
		},
		Infra: InfraConfig{
			MySQL:  MySQLConfig{MaxOpenConns: 20, MaxIdleConns: 10, ConnMaxLifetime: time.Hour},
			Redis:  RedisConfig{Addr: "localhost:6379"},
			Kafka:  KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "workflow-notifications", GroupID: "notification-service"},
			Jaeger: JaegerConfig{SampleRatio: 1},
			Nacos:  NacosConfig{Addrs: "localhost:8848", Group: "DEFAULT_GROUP"},
		},
	}
}

// Load 读取 path 指向的 YAML（为空则跳过），再叠加环境变量
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment overrides")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查后端选择与其依赖的连接信息是否匹配
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return errors.Errorf("app.port %d is out of range", c.App.Port)
	}
	switch c.App.Store.Backend {
	case StoreMemory:
	case StoreMySQL:
		if c.Infra.MySQL.DSN == "" {
			return errors.New("infra.mysql.dsn is required for the mysql store")
		}
	case StoreRedis:
		if c.Infra.Redis.Addr == "" {
			return errors.New("infra.redis.addr is required for the redis store")
		}
	default:
		return errors.Errorf("unknown store backend %q", c.App.Store.Backend)
	}
	for _, b := range c.App.Notify.Backends {
		switch strings.TrimSpace(b) {
		case "log":
		case "kafka":
			if len(c.Infra.Kafka.Brokers) == 0 || c.Infra.Kafka.Topic == "" {
				return errors.New("infra.kafka brokers and topic are required for kafka notifications")
			}
		case "webhook":
			if c.App.Notify.WebhookURL == "" {
				return errors.New("app.notify.webhook_url is required for webhook notifications")
			}
		default:
			return errors.Errorf("unknown notification backend %q", b)
		}
	}
	return nil
}

// Init 从 CONFIG_FILE 加载配置并设为当前配置
func Init() (*Config, error) {
	cfg, err := Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	current.Store(cfg)
	return cfg, nil
}

// GetCurrentConfig 返回最近一次 Init 加载的配置；未初始化时返回默认值
func GetCurrentConfig() *Config {
	if cfg := current.Load(); cfg != nil {
		return cfg
	}
	cfg := DefaultConfig()
	return &cfg
}
