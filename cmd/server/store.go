// cmd/server/store.go
package main

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/arena/internal/cache"
	"github.com/jason-s-yu/arena/internal/config"
	"github.com/jason-s-yu/arena/internal/database"
	"github.com/sirupsen/logrus"
)

// openRecorder builds the persistence backend named by cfg.PersistBackend. The
// returned close function releases its connections.
func openRecorder(ctx context.Context, cfg config.Config, logger *logrus.Entry) (database.Recorder, func(), error) {
	switch cfg.PersistBackend {
	case config.BackendPostgres:
		pool, err := database.ConnectDB(ctx, database.ConnString())
		if err != nil {
			return nil, nil, err
		}
		store := database.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.BackendSQLite:
		store, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Warn("failed to close sqlite store")
			}
		}, nil

	case config.BackendRedis:
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		rec := cache.NewQueueRecorder(cache.NewRedisQueue(rdb, cfg.QueueName))
		return rec, func() { _ = rdb.Close() }, nil

	case config.BackendNone, "":
		return database.LogRecorder{Logger: logger}, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown persistence backend %q", cfg.PersistBackend)
}
