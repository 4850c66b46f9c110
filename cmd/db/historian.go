// cmd/db/historian.go drains the Redis persistence queue written by the game server
// (PERSIST_BACKEND=redis) into postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jason-s-yu/arena/internal/cache"
	"github.com/jason-s-yu/arena/internal/database"
	"github.com/jason-s-yu/arena/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(lvl)
	}
	log := logrus.NewEntry(logger).WithField("service", "arena-historian")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectDB(ctx, database.ConnString())
	if err != nil {
		log.WithError(err).Fatal("failed to connect to postgres")
	}
	store := database.NewPostgresStore(pool)
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		log.WithError(err).Fatal("failed to migrate schema")
	}

	rdb, err := cache.Connect(ctx, getEnv("REDIS_ADDR", "localhost:6379"), getEnvInt("REDIS_DB", 0))
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer rdb.Close()

	queue := cache.NewRedisQueue(rdb, getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName))
	pop := time.Duration(getEnvInt("HISTORIAN_POP_TIMEOUT_SEC", 3)) * time.Second
	historian.New(queue, store, pop, log).Run(ctx)
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
