// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Persistence backends selectable with PERSIST_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendNone     = "none"
)

// Config is the process configuration, read from the environment. A .env file in the
// working directory is loaded first by cmd/server through godotenv/autoload.
type Config struct {
	Port     string
	LogLevel string

	// TickRate is the scheduler frequency in Hz, shared by both game families.
	TickRate int
	MaxRooms int

	EmptyRoomGrace  time.Duration
	FinishedRoomTTL time.Duration
	ReapInterval    time.Duration

	AnnounceCountdown      time.Duration
	TournamentDestroyDelay time.Duration

	PersistBackend string
	SQLitePath     string
	RedisAddr      string
	RedisDB        int
	QueueName      string

	// InputRate and InputBurst bound inbound websocket messages per connection.
	InputRate  float64
	InputBurst int
	// HTTPRate and HTTPBurst bound REST requests per client IP.
	HTTPRate  float64
	HTTPBurst int

	// MaxConnsPerIP caps concurrent websocket connections per client IP; 0 disables it.
	MaxConnsPerIP int

	// TokenExpireTime is the raw TOKEN_EXPIRE_TIME value, parsed by auth.ParseExpireTime.
	TokenExpireTime string

	// JWTPrivateKeyPath and JWTPublicKeyPath point at raw ed25519 keys. When either is
	// empty an ephemeral key pair is generated at startup.
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string

	AllowedOrigins []string
	TuningFile     string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                   "8080",
		LogLevel:               "info",
		TickRate:               60,
		MaxRooms:               500,
		EmptyRoomGrace:         30 * time.Second,
		FinishedRoomTTL:        2 * time.Minute,
		ReapInterval:           5 * time.Second,
		AnnounceCountdown:      3 * time.Second,
		TournamentDestroyDelay: 10 * time.Second,
		PersistBackend:         BackendNone,
		SQLitePath:             "arena.db",
		RedisAddr:              "localhost:6379",
		QueueName:              "arena_matches",
		InputRate:              120,
		InputBurst:             60,
		HTTPRate:               10,
		HTTPBurst:              20,
		MaxConnsPerIP:          8,
		AllowedOrigins:         []string{"*"},
	}
}

// FromEnv returns Default with environment overrides applied.
func FromEnv() Config {
	cfg := Default()

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.TickRate = getEnvInt("TICK_RATE", cfg.TickRate)
	cfg.MaxRooms = getEnvInt("MAX_ROOMS", cfg.MaxRooms)
	cfg.EmptyRoomGrace = getEnvDuration("EMPTY_ROOM_GRACE", cfg.EmptyRoomGrace)
	cfg.FinishedRoomTTL = getEnvDuration("FINISHED_ROOM_TTL", cfg.FinishedRoomTTL)
	cfg.ReapInterval = getEnvDuration("REAP_INTERVAL", cfg.ReapInterval)
	cfg.AnnounceCountdown = getEnvDuration("ANNOUNCE_COUNTDOWN", cfg.AnnounceCountdown)
	cfg.TournamentDestroyDelay = getEnvDuration("TOURNAMENT_DESTROY_DELAY", cfg.TournamentDestroyDelay)
	cfg.PersistBackend = strings.ToLower(getEnv("PERSIST_BACKEND", cfg.PersistBackend))
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.QueueName = getEnv("HISTORIAN_QUEUE_NAME", cfg.QueueName)
	cfg.InputRate = getEnvFloat("INPUT_RATE", cfg.InputRate)
	cfg.InputBurst = getEnvInt("INPUT_BURST", cfg.InputBurst)
	cfg.HTTPRate = getEnvFloat("HTTP_RATE", cfg.HTTPRate)
	cfg.HTTPBurst = getEnvInt("HTTP_BURST", cfg.HTTPBurst)
	cfg.MaxConnsPerIP = getEnvInt("MAX_CONNS_PER_IP", cfg.MaxConnsPerIP)
	cfg.TokenExpireTime = getEnv("TOKEN_EXPIRE_TIME", cfg.TokenExpireTime)
	cfg.JWTPrivateKeyPath = getEnv("JWT_PRIVATE_KEY_PATH", cfg.JWTPrivateKeyPath)
	cfg.JWTPublicKeyPath = getEnv("JWT_PUBLIC_KEY_PATH", cfg.JWTPublicKeyPath)
	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}
	cfg.TuningFile = getEnv("TUNING_FILE", cfg.TuningFile)

	return cfg
}

// TickInterval converts TickRate into the ticker period.
func (c Config) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickRate)
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

func getEnvFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration accepts Go durations ("30s") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
