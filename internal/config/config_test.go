package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, StorageMemory, cfg.CartStorage)
	assert.Equal(t, "aquaVentureCart", cfg.CartStorageKey)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30*time.Minute, cfg.CartIdleTTL)
	assert.Equal(t, int64(1<<20), cfg.MaxRequestBodySize)
	assert.False(t, cfg.ArchiveEnabled())
	assert.False(t, cfg.PublisherEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CART_STORAGE", "redis")
	t.Setenv("CART_IDLE_TTL", "5m")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DB_HOST", "pg")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, StorageRedis, cfg.CartStorage)
	assert.Equal(t, 5*time.Minute, cfg.CartIdleTTL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.ArchiveEnabled())
	assert.True(t, cfg.PublisherEnabled())
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT: \"7070\"\nLOG_LEVEL: debug\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_InvalidStorage(t *testing.T) {
	t.Setenv("CART_STORAGE", "sqlite")
	t.Setenv("ACCOUNT_STORE", "redis")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CART_STORAGE")
	assert.Contains(t, err.Error(), "ACCOUNT_STORE")
}

func TestValidate_ConsumerNeedsBrokersAndArchive(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.OrdersConsumerEnabled = true
	assert.Error(t, cfg.Validate())

	cfg.KafkaBrokers = []string{"k:9092"}
	cfg.DBHost = "pg"
	assert.NoError(t, cfg.Validate())
}
