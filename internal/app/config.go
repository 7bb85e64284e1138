package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (DESHIKART_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string   `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string   `usage:"PostgreSQL connection URL (DESHIKART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	MongoURL      string   `default:"mongodb://localhost:27017" usage:"MongoDB connection URL for carts" flag:"mongo-url"`
	MongoDatabase string   `default:"deshikart" usage:"MongoDB database name" flag:"mongo-database"`
	RedisURL      string   `default:"" usage:"Redis URL for the cart cache; empty disables caching" flag:"redis-url"`
	KafkaBrokers  []string `usage:"Kafka broker addresses for order events; empty disables publishing" flag:"kafka-brokers"`
	APIKeyPepper  string   `usage:"HMAC pepper for API key hashing (DESHIKART_API_KEY_PEPPER)" flag:"api-key-pepper"`

	ReturnWindowDays int `default:"14" usage:"Days after delivery a return may be requested" flag:"return-window-days"`

	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// ReturnWindow converts the configured day count to a duration.
func (c *Config) ReturnWindow() time.Duration {
	return time.Duration(c.ReturnWindowDays) * 24 * time.Hour
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "DESHIKART",
		Files:     []string{"config.yaml", "/etc/deshikart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set DESHIKART_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's DESHIKART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if v := os.Getenv("MONGO_URL"); v != "" && c.MongoURL == "mongodb://localhost:27017" {
		c.MongoURL = v
	}
	if c.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
