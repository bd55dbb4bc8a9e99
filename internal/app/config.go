package app

import (
	"os"
	"slices"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const defaultAddr = "0.0.0.0:8080"

// Storage drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

var drivers = []string{DriverFile, DriverMemory, DriverRedis, DriverPostgres}

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr           string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	ImageBaseURL   string        `default:"https://picsum.photos/seed" usage:"Base URL for generated starship images" flag:"image-base-url"`
	HealthInterval time.Duration `default:"10s" usage:"Interval between health probes" flag:"health-interval"`
	Catalog        CatalogConfig
	Storage        StorageConfig
	Checkout       CheckoutConfig
	Gates          GatesConfig
	CORS           CORSConfig
	Graceful       GracefulConfig
}

// CatalogConfig points at the starship catalog API.
type CatalogConfig struct {
	BaseURL string        `default:"https://swapi.dev/api" usage:"Catalog API base URL" flag:"catalog-url"`
	Timeout time.Duration `default:"10s" usage:"Catalog request timeout" flag:"catalog-timeout"`
}

// StorageConfig selects where the reward balance is persisted.
type StorageConfig struct {
	Driver        string `default:"file" usage:"Credits storage driver: file, memory, redis or postgres" flag:"storage-driver"`
	Dir           string `default:"data" usage:"Directory for the file driver" flag:"storage-dir"`
	Key           string `default:"@starship_shop_credits" usage:"Storage key holding the balance" flag:"storage-key"`
	RedisAddr     string `default:"localhost:6379" usage:"Redis address (SHOP_STORAGE_REDIS_ADDR or REDIS_URL)" flag:"redis-addr"`
	RedisPassword string `usage:"Redis password" flag:"redis-password"`
	RedisDB       int    `default:"0" usage:"Redis database number" flag:"redis-db"`
	RedisPrefix   string `default:"starship-shop:" usage:"Prefix for Redis keys" flag:"redis-prefix"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (SHOP_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
}

// CheckoutConfig controls order placement.
type CheckoutConfig struct {
	TaxRate           string        `default:"0.05" usage:"Tax rate applied to the subtotal" flag:"tax-rate"`
	Delay             time.Duration `default:"800ms" usage:"Simulated order processing delay" flag:"checkout-delay"`
	StrictPersistence bool          `default:"false" usage:"Keep the cart and fail the order when credits cannot be saved" flag:"strict-persistence"`
}

// GatesConfig controls the minimum interval between repeated intents. A
// negative interval disables the gate.
type GatesConfig struct {
	Cart           time.Duration `default:"300ms" usage:"Minimum interval between add/remove taps per item" flag:"gate-cart"`
	Search         time.Duration `default:"600ms" usage:"Minimum interval between searches" flag:"gate-search"`
	MinQueryLength int           `default:"2" usage:"Shortest search query issued" flag:"min-query-length"`
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

// LoadConfig loads configuration from environment variables, YAML config
// files and flags, then applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/starship-shop/config.yaml"},
	})
}

func loadConfig(acfg aconfig.Config) (*Config, error) {
	acfg.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}

	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := cfg.applyPlatformDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL, REDIS_URL and PORT
// to the application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() error {
	if c.Storage.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Storage.DatabaseURL = v
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" && os.Getenv("SHOP_STORAGE_REDIS_ADDR") == "" {
		opt, err := goredis.ParseURL(v)
		if err != nil {
			return errors.Wrap(err, "parse REDIS_URL")
		}
		c.Storage.RedisAddr = opt.Addr
		c.Storage.RedisPassword = opt.Password
		c.Storage.RedisDB = opt.DB
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	return nil
}

func (c *Config) validate() error {
	if !slices.Contains(drivers, c.Storage.Driver) {
		return errors.Errorf("unknown storage driver %q, want one of %v", c.Storage.Driver, drivers)
	}
	if c.Storage.Driver == DriverPostgres && c.Storage.DatabaseURL == "" {
		return errors.New("database URL is required for the postgres driver: set SHOP_STORAGE_DATABASE_URL or DATABASE_URL")
	}
	if c.Storage.Key == "" {
		return errors.New("storage key must not be empty")
	}
	if _, err := c.Checkout.taxRate(); err != nil {
		return err
	}
	return nil
}

func (c CheckoutConfig) taxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse tax rate %q", c.TaxRate)
	}
	if rate.IsNegative() {
		return decimal.Zero, errors.Errorf("tax rate %s must not be negative", rate)
	}
	return rate, nil
}
