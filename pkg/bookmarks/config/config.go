package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings for the bookmarks service.
type Config struct {
	Port            string        `yaml:"port"`     // ex: "8080"
	BaseURL         string        `yaml:"base_url"` // prefix for short URLs in responses
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	DBDriver string `yaml:"db_driver"` // "sqlite" | "postgres"
	DBDSN    string `yaml:"db_dsn"`

	JWTSecretKey     string        `yaml:"jwt_secret_key"`
	JWTAccessExpire  time.Duration `yaml:"jwt_access_expire"`
	JWTRefreshExpire time.Duration `yaml:"jwt_refresh_expire"`

	LogLevel     string `yaml:"log_level"` // "debug" | "info" | "warn" | "error"
	PrettyLog    bool   `yaml:"log_pretty"`
	GormLogLevel string `yaml:"gorm_log_level"` // "silent" | "error" | "warn" | "info"

	// Redis is optional; empty RedisAddr disables the short URL cache.
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`

	// RabbitMQ is optional; empty RabbitMQURL records visits synchronously.
	RabbitMQURL string `yaml:"rabbitmq_url"`
	VisitsQueue string `yaml:"visits_queue"`

	RateLimitBurst  int `yaml:"rate_limit_burst"`
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

const (
	defaultPort             = "8080"
	defaultBaseURL          = "http://localhost:8080"
	defaultDBDriver         = "sqlite"
	defaultDBDSN            = "bookmarks.db"
	defaultJWTSecretKey     = "bookmarks-dev-secret-change-in-production"
	defaultJWTAccessExpire  = 15 * time.Minute
	defaultJWTRefreshExpire = 30 * 24 * time.Hour
	defaultVisitsQueue      = "bookmark_visits"
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:             defaultPort,
		BaseURL:          defaultBaseURL,
		ShutdownTimeout:  5 * time.Second,
		DBDriver:         defaultDBDriver,
		DBDSN:            defaultDBDSN,
		JWTSecretKey:     defaultJWTSecretKey,
		JWTAccessExpire:  defaultJWTAccessExpire,
		JWTRefreshExpire: defaultJWTRefreshExpire,
		LogLevel:         "info",
		PrettyLog:        false,
		GormLogLevel:     "warn",
		CacheTTL:         time.Hour,
		VisitsQueue:      defaultVisitsQueue,
		RateLimitBurst:   10,
		RateLimitPerMin:  30,
	}
}

// Load reads .env (if present), then the optional YAML file named by
// BOOKMARKS_CONFIG_FILE, then applies environment overrides.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("BOOKMARKS_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getenv("PORT", c.Port)
	c.BaseURL = strings.TrimRight(getenv("BASE_URL", c.BaseURL), "/")
	c.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.DBDriver = getenv("DB_DRIVER", c.DBDriver)
	c.DBDSN = getenv("DB_DSN", c.DBDSN)

	c.JWTSecretKey = getenv("JWT_SECRET_KEY", c.JWTSecretKey)
	c.JWTAccessExpire = getDuration("JWT_ACCESS_EXPIRE", c.JWTAccessExpire)
	c.JWTRefreshExpire = getDuration("JWT_REFRESH_EXPIRE", c.JWTRefreshExpire)

	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.PrettyLog = getBool("LOG_PRETTY", c.PrettyLog)
	c.GormLogLevel = getenv("GORM_LOG_LEVEL", c.GormLogLevel)

	c.RedisAddr = getenv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getenv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getInt("REDIS_DB", c.RedisDB)
	c.CacheTTL = getDuration("CACHE_TTL", c.CacheTTL)

	c.RabbitMQURL = getenv("RABBITMQ_URL", c.RabbitMQURL)
	c.VisitsQueue = getenv("VISITS_QUEUE", c.VisitsQueue)

	c.RateLimitBurst = getInt("RATE_LIMIT_BURST", c.RateLimitBurst)
	c.RateLimitPerMin = getInt("RATE_LIMIT_PER_MIN", c.RateLimitPerMin)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN must not be empty")
	}
	if len(c.JWTSecretKey) < 16 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 16 bytes")
	}
	if c.JWTAccessExpire <= 0 || c.JWTRefreshExpire <= 0 {
		return fmt.Errorf("JWT expirations must be > 0")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// helpers
func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
