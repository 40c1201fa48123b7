package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the complete service configuration. Values come from defaults,
// then an optional TOML file, then environment variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	Storage   StorageConfig   `toml:"storage"`
	Auth      AuthConfig      `toml:"auth"`
	Messaging MessagingConfig `toml:"messaging"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port            string        `toml:"port"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `toml:"url"`
	MaxConns int32  `toml:"max_conns"`
}

// RedisConfig leaves Addr empty to use the in-process cache.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type StorageConfig struct {
	Endpoint      string        `toml:"endpoint"`
	AccessKey     string        `toml:"access_key"`
	SecretKey     string        `toml:"secret_key"`
	UseSSL        bool          `toml:"use_ssl"`
	Bucket        string        `toml:"bucket"`
	PresignExpiry time.Duration `toml:"presign_expiry"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	AdminRole string `toml:"admin_role"`
}

// MessagingConfig leaves URL empty to disable change-event consumption.
type MessagingConfig struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
	Topic    string `toml:"topic"`
}

type CatalogConfig struct {
	CacheTTL       time.Duration `toml:"cache_ttl"`
	WarmupInterval time.Duration `toml:"warmup_interval"`
	SessionIdle    time.Duration `toml:"session_idle"`
	SessionSweep   time.Duration `toml:"session_sweep"`
	MemoLimit      int           `toml:"memo_limit"`
}

type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080", ShutdownTimeout: 10 * time.Second},
		Database: DatabaseConfig{MaxConns: 10},
		Storage: StorageConfig{
			Endpoint:      "localhost:9000",
			Bucket:        "catalog-images",
			PresignExpiry: time.Hour,
		},
		Auth: AuthConfig{AdminRole: "catalog_admin"},
		Messaging: MessagingConfig{
			Exchange: "catalog",
			Topic:    "catalog.#",
		},
		Catalog: CatalogConfig{
			CacheTTL:       5 * time.Minute,
			WarmupInterval: 5 * time.Minute,
			SessionIdle:    30 * time.Minute,
			SessionSweep:   time.Minute,
			MemoLimit:      256,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path when it is non-empty and then applies the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Server.Port)
	str("DATABASE_URL", &c.Database.URL)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("MINIO_ENDPOINT", &c.Storage.Endpoint)
	str("MINIO_ACCESS_KEY", &c.Storage.AccessKey)
	str("MINIO_SECRET_KEY", &c.Storage.SecretKey)
	str("MINIO_BUCKET", &c.Storage.Bucket)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("AMQP_URL", &c.Messaging.URL)
	str("LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Redis.DB = db
	}
	if v, ok := lookup("MINIO_USE_SSL"); ok && v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MINIO_USE_SSL: %w", err)
		}
		c.Storage.UseSSL = useSSL
	}
	if v, ok := lookup("CATALOG_CACHE_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CATALOG_CACHE_TTL: %w", err)
		}
		c.Catalog.CacheTTL = ttl
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required (DATABASE_URL)")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Catalog.CacheTTL < 0 {
		return fmt.Errorf("catalog cache_ttl must not be negative")
	}
	return nil
}
