package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port" validate:"required"`
	Env            string   `mapstructure:"env"`
	APIKeys        []string `mapstructure:"api_keys"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type InventoryConfig struct {
	BaseURL    string        `mapstructure:"base_url" validate:"required,url"`
	APIKey     string        `mapstructure:"api_key"`
	APIVersion string        `mapstructure:"api_version"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type CatalogConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0,lte=1h"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"gt=0"`
}

type AuditConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DSN           string        `mapstructure:"dsn" validate:"required_if=Enabled true"`
	BatchSize     int           `mapstructure:"batch_size" validate:"gt=0"`
	FlushInterval time.Duration `mapstructure:"flush_interval" validate:"gt=0"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// LoadConfig reads configuration from the default locations and the environment.
func LoadConfig() (*Config, error) {
	return Load("")
}

// Load reads configuration from file (when given) or the default search paths, then
// applies environment overrides such as INVENTORY_BASE_URL.
func Load(file string) (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// Resolve secrets
	cfg.Inventory.APIKey = resolve(v, cfg.Inventory.APIKey)
	cfg.Redis.Password = resolve(v, cfg.Redis.Password)
	keys := cfg.Server.APIKeys[:0]
	for _, k := range cfg.Server.APIKeys {
		if k = resolve(v, strings.TrimSpace(k)); k != "" {
			keys = append(keys, k)
		}
	}
	cfg.Server.APIKeys = keys

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.api_keys", []string{})
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("inventory.base_url", "http://localhost:8080")
	v.SetDefault("inventory.api_key", "")
	v.SetDefault("inventory.api_version", "")
	v.SetDefault("inventory.timeout", 10*time.Second)

	v.SetDefault("catalog.ttl", time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.dsn", "file:registry.db?_busy_timeout=5000")
	v.SetDefault("audit.batch_size", 50)
	v.SetDefault("audit.flush_interval", 5*time.Second)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "model-registry")

	v.SetDefault("log.level", "info")
}

// resolve expands "ENV:NAME" references.
func resolve(v *viper.Viper, value string) string {
	if !strings.HasPrefix(value, "ENV:") {
		return value
	}
	envVar := strings.TrimPrefix(value, "ENV:")
	// Check process environment first (explicit override)
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	// Then check viper (which might have it from other sources)
	return v.GetString(envVar)
}
