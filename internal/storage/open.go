package storage

import (
	"fmt"
	"log/slog"

	"memchat/internal/config"
	"memchat/internal/domain"
)

// Open creates the blob store selected by cfg.Backend.
func Open(cfg config.StorageConfig, logger *slog.Logger) (domain.BlobStore, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Dir, logger), nil
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.DBPath, logger)
	case config.BackendRedis:
		return NewRedisStore(RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Namespace: cfg.Redis.Namespace,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
