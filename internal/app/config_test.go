package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearPlatformEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DATABASE_URL", "REDIS_URL"} {
		t.Setenv(k, "")
	}
}

func testLoad(t *testing.T, files ...string) (*Config, error) {
	t.Helper()
	return loadConfig(aconfig.Config{
		EnvPrefix: "SHOP",
		SkipFlags: true,
		Files:     files,
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearPlatformEnv(t)

	cfg, err := testLoad(t)
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, "https://swapi.dev/api", cfg.Catalog.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "@starship_shop_credits", cfg.Storage.Key)
	assert.Equal(t, 800*time.Millisecond, cfg.Checkout.Delay)
	assert.False(t, cfg.Checkout.StrictPersistence)
	assert.Equal(t, 300*time.Millisecond, cfg.Gates.Cart)
	assert.Equal(t, 600*time.Millisecond, cfg.Gates.Search)
	assert.Equal(t, 2, cfg.Gates.MinQueryLength)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)

	rate, err := cfg.Checkout.taxRate()
	require.NoError(t, err)
	assert.Equal(t, "0.05", rate.String())
}

func TestLoadConfig_Env(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("SHOP_STORAGE_DRIVER", "memory")
	t.Setenv("SHOP_CHECKOUT_TAX_RATE", "0.1")
	t.Setenv("SHOP_GATES_SEARCH", "1s")
	t.Setenv("PORT", "9090")

	cfg, err := testLoad(t)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "0.1", cfg.Checkout.TaxRate)
	assert.Equal(t, time.Second, cfg.Gates.Search)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestLoadConfig_ZeroTaxRate(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("SHOP_CHECKOUT_TAX_RATE", "0")

	cfg, err := testLoad(t)
	require.NoError(t, err)

	rate, err := cfg.Checkout.taxRate()
	require.NoError(t, err)
	assert.True(t, rate.IsZero())
}

func TestLoadConfig_PlatformURLs(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("SHOP_STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://shop@db:5432/shop")
	t.Setenv("REDIS_URL", "redis://:secret@cache:6380/2")

	cfg, err := testLoad(t)
	require.NoError(t, err)

	assert.Equal(t, "postgres://shop@db:5432/shop", cfg.Storage.DatabaseURL)
	assert.Equal(t, "cache:6380", cfg.Storage.RedisAddr)
	assert.Equal(t, "secret", cfg.Storage.RedisPassword)
	assert.Equal(t, 2, cfg.Storage.RedisDB)
}

func TestLoadConfig_YAML(t *testing.T) {
	clearPlatformEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: 127.0.0.1:7000\nstorage:\n  driver: memory\n"), 0o600))

	cfg, err := testLoad(t, path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"SHOP_STORAGE_DRIVER": "sqlite"}},
		{name: "postgres without url", env: map[string]string{"SHOP_STORAGE_DRIVER": "postgres"}},
		{name: "negative tax", env: map[string]string{"SHOP_CHECKOUT_TAX_RATE": "-0.1"}},
		{name: "garbage tax", env: map[string]string{"SHOP_CHECKOUT_TAX_RATE": "five"}},
		{name: "bad redis url", env: map[string]string{"REDIS_URL": "http://nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearPlatformEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := testLoad(t)
			assert.Error(t, err)
		})
	}
}
