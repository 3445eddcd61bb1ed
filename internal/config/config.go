// Package config loads storefront settings from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"
)

type Config struct {
	Env       string `mapstructure:"APP_ENV"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	HTTPPort           string        `mapstructure:"HTTP_PORT"`
	GRPCPort           string        `mapstructure:"GRPC_PORT"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout    time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	MaxRequestBodySize int64         `mapstructure:"MAX_REQUEST_BODY_SIZE"`

	CatalogDBPath         string `mapstructure:"CATALOG_DB_PATH"`
	CatalogMigrationsPath string `mapstructure:"CATALOG_MIGRATIONS_PATH"`
	CatalogFile           string `mapstructure:"CATALOG_FILE"`

	CartStorage         string        `mapstructure:"CART_STORAGE"`
	CartStorageKey      string        `mapstructure:"CART_STORAGE_KEY"`
	CartTTL             time.Duration `mapstructure:"CART_TTL"`
	CartIdleTTL         time.Duration `mapstructure:"CART_IDLE_TTL"`
	CartCleanupInterval time.Duration `mapstructure:"CART_CLEANUP_INTERVAL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	AccountStore string        `mapstructure:"ACCOUNT_STORE"`
	SessionTTL   time.Duration `mapstructure:"SESSION_TTL"`
	BcryptCost   int           `mapstructure:"BCRYPT_COST"`

	DBHost               string `mapstructure:"DB_HOST"`
	DBPort               int    `mapstructure:"DB_PORT"`
	DBUser               string `mapstructure:"DB_USER"`
	DBPassword           string `mapstructure:"DB_PASSWORD"`
	DBName               string `mapstructure:"DB_NAME"`
	OrdersMigrationsPath string `mapstructure:"ORDERS_MIGRATIONS_PATH"`

	KafkaBrokers          []string `mapstructure:"KAFKA_BROKERS"`
	KafkaGroupID          string   `mapstructure:"KAFKA_GROUP_ID"`
	OrdersConsumerEnabled bool     `mapstructure:"ORDERS_CONSUMER_ENABLED"`
}

var defaults = map[string]any{
	"APP_ENV":    "development",
	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "console",

	"HTTP_PORT":             "8080",
	"GRPC_PORT":             "50051",
	"REQUEST_TIMEOUT":       30 * time.Second,
	"SHUTDOWN_TIMEOUT":      10 * time.Second,
	"MAX_REQUEST_BODY_SIZE": int64(1 << 20), // 1MB

	"CATALOG_DB_PATH":         "./data/catalog.db",
	"CATALOG_MIGRATIONS_PATH": "./internal/catalog/migrations",
	"CATALOG_FILE":            "",

	"CART_STORAGE":          StorageMemory,
	"CART_STORAGE_KEY":      "aquaVentureCart",
	"CART_TTL":              30 * 24 * time.Hour,
	"CART_IDLE_TTL":         30 * time.Minute,
	"CART_CLEANUP_INTERVAL": time.Minute,

	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"MONGO_URI":     "mongodb://localhost:27017",
	"MONGO_DB_NAME": "aquaventure",

	"ACCOUNT_STORE": StorageMemory,
	"SESSION_TTL":   24 * time.Hour,
	"BCRYPT_COST":   10,

	"DB_HOST":                "",
	"DB_PORT":                5432,
	"DB_USER":                "postgres",
	"DB_PASSWORD":            "",
	"DB_NAME":                "aquaventure",
	"ORDERS_MIGRATIONS_PATH": "./internal/orders/migrations",

	"KAFKA_BROKERS":           []string{},
	"KAFKA_GROUP_ID":          "storefront-orders",
	"ORDERS_CONSUMER_ENABLED": false,
}

// Load reads configuration from environment variables. When CONFIG_FILE
// is set, that file is read first and the environment overrides it.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if !validStore(c.CartStorage, StorageMemory, StorageRedis, StorageMongo) {
		errs = append(errs, fmt.Errorf("CART_STORAGE must be memory, redis or mongo, got %q", c.CartStorage))
	}
	if !validStore(c.AccountStore, StorageMemory, StorageMongo) {
		errs = append(errs, fmt.Errorf("ACCOUNT_STORE must be memory or mongo, got %q", c.AccountStore))
	}
	if c.HTTPPort == "" {
		errs = append(errs, errors.New("HTTP_PORT is required"))
	}
	if c.RequestTimeout <= 0 || c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT and SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.CartIdleTTL <= 0 || c.CartCleanupInterval <= 0 {
		errs = append(errs, errors.New("CART_IDLE_TTL and CART_CLEANUP_INTERVAL must be positive"))
	}
	if c.OrdersConsumerEnabled && (len(c.KafkaBrokers) == 0 || !c.ArchiveEnabled()) {
		errs = append(errs, errors.New("ORDERS_CONSUMER_ENABLED needs KAFKA_BROKERS and DB_HOST"))
	}
	return errors.Join(errs...)
}

// ArchiveEnabled reports whether a Postgres order archive is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.DBHost != ""
}

func (c *Config) PublisherEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func validStore(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
