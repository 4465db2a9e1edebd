package storage

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kitbuilder587/fantasy-tales/internal/config"
	"github.com/kitbuilder587/fantasy-tales/internal/storage/memory"
	"github.com/kitbuilder587/fantasy-tales/internal/storage/postgres"
	"github.com/kitbuilder587/fantasy-tales/internal/storage/redis"
	"github.com/kitbuilder587/fantasy-tales/internal/storage/sqlite"
)

// Backend - Store, который надо закрыть при выходе.
type Backend interface {
	Store
	io.Closer
}

var (
	_ Backend = (*memory.Store)(nil)
	_ Backend = (*sqlite.Store)(nil)
	_ Backend = (*postgres.Store)(nil)
	_ Backend = (*redis.Store)(nil)
)

// Open builds the backend selected by cfg.Type.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Backend, error) {
	switch cfg.Type {
	case config.StoreMemory:
		return memory.New(), nil

	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite store opened", zap.String("path", cfg.Path))
		return s, nil

	case config.StorePostgres:
		db, err := postgres.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s := postgres.NewStore(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("postgres store connected")
		return s, nil

	case config.StoreRedis:
		s, err := redis.New(ctx, redis.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("redis store connected", zap.String("addr", cfg.Redis.Addr))
		return s, nil
	}

	return nil, fmt.Errorf("%w: %q", config.ErrInvalidStore, cfg.Type)
}
