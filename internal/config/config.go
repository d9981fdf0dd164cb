package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Config is the full process configuration, read once in main and
// passed down explicitly.
type Config struct {
	Port     string
	AppURL   string `validate:"required,url"`
	Database Database
	Redis    Redis
	Shopify  Shopify

	SkipMigrations bool
}

// Database is the MySQL connection settings.
type Database struct {
	Host         string `validate:"required"`
	Port         int    `validate:"required"`
	User         string `validate:"required"`
	Password     string
	Name         string `validate:"required"`
	MaxOpenConns int
	MaxIdleConns int
}

// Redis is the OAuth state store connection settings.
type Redis struct {
	Addr     string `validate:"required"`
	Password string
	DB       int
}

// Shopify is the app credential pair plus the requested install scopes.
type Shopify struct {
	APIKey    string `validate:"required"`
	APISecret string `validate:"required"`
	Scopes    string `validate:"required"`
	// APIVersion pins the Admin API, e.g. "2024-10".
	APIVersion string `validate:"required"`
}

// FromEnv assembles and validates the configuration from environment
// variables. Call godotenv.Load first when a .env file is in play.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:   envOr("PORT", "8080"),
		AppURL: envOr("APP_URL", "http://localhost:8080"),
		Database: Database{
			Host:         envOr("DB_HOST", "localhost"),
			Port:         intEnvOr("DB_PORT", 3306),
			User:         envOr("DB_USER", "root"),
			Password:     os.Getenv("DB_PASSWORD"),
			Name:         envOr("DB_NAME", "shopsight"),
			MaxOpenConns: intEnvOr("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns: intEnvOr("DB_MAX_IDLE_CONNS", 25),
		},
		Redis: Redis{
			Addr:     envOr("REDIS_ADDRESS", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       intEnvOr("REDIS_DB", 0),
		},
		Shopify: Shopify{
			APIKey:     os.Getenv("SHOPIFY_API_KEY"),
			APISecret:  os.Getenv("SHOPIFY_API_SECRET"),
			Scopes:     envOr("SHOPIFY_SCOPES", "read_products,read_orders,read_customers"),
			APIVersion: envOr("SHOPIFY_API_VERSION", "2024-10"),
		},
		SkipMigrations: os.Getenv("SKIP_MIGRATIONS") == "true",
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnvOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
