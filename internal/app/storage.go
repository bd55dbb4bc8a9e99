package app

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/starship-shop/internal/domain/credits"
	"github.com/xenking/starship-shop/internal/storage/file"
	"github.com/xenking/starship-shop/internal/storage/memory"
	"github.com/xenking/starship-shop/internal/storage/postgres"
	"github.com/xenking/starship-shop/internal/storage/redis"
)

// openStorage connects the configured credits storage driver. The returned
// close function is never nil.
func openStorage(ctx context.Context, lg *zap.Logger, cfg StorageConfig) (credits.Storage, func(), error) {
	noop := func() {}
	lg = lg.With(zap.String("driver", cfg.Driver))

	switch cfg.Driver {
	case DriverMemory:
		lg.Warn("Credits are kept in memory and lost on restart")
		return memory.New(), noop, nil
	case DriverFile:
		s, err := file.New(cfg.Dir)
		if err != nil {
			return nil, noop, errors.Wrap(err, "open file storage")
		}
		lg.Info("Credits storage ready", zap.String("dir", cfg.Dir))
		return s, noop, nil
	case DriverRedis:
		s, client, err := redis.Dial(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, noop, errors.Wrap(err, "open redis storage")
		}
		lg.Info("Credits storage ready", zap.String("addr", cfg.RedisAddr))
		return s, func() { _ = client.Close() }, nil
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, errors.Wrap(err, "create db pool")
		}
		s := postgres.New(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, noop, errors.Wrap(err, "run migrations")
		}
		lg.Info("Credits storage ready")
		return s, pool.Close, nil
	default:
		return nil, noop, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
