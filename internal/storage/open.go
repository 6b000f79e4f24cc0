package storage

import (
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/logging"
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Open connects the driver selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		s, err := ConnectMongo(ctx, cfg.MongoDBURI, cfg.MongoDBDatabase)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		return s, nil

	case config.DriverPostgres:
		s, err := OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.DriverMemory:
		logging.Warn().Msg("using in-memory store, data is lost on restart")
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// OpenRedis returns nil when no Redis address is configured.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect Redis: %w", err)
	}
	return rdb, nil
}

// NewLocker picks the Redis locker when rdb is set.
func NewLocker(rdb *redis.Client) Locker {
	if rdb == nil {
		return NewLocalLocker()
	}
	return NewRedisLocker(rdb)
}
