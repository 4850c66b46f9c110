// cmd/server/serve.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/arena/internal/auth"
	"github.com/jason-s-yu/arena/internal/config"
	"github.com/jason-s-yu/arena/internal/database"
	"github.com/jason-s-yu/arena/internal/handlers"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and websocket server",
	Long: `Start the game server: the room REST API under /rooms, the websocket
endpoint at /ws, /healthz and /metrics.

On SIGINT or SIGTERM the schedulers stop first, then the reaper, then queued
persistence is drained, and finally the HTTP server shuts down.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := newLogger(cfg.LogLevel)

	ttl, err := auth.ParseExpireTime(cfg.TokenExpireTime)
	if err != nil {
		return err
	}
	if cfg.JWTPrivateKeyPath != "" && cfg.JWTPublicKeyPath != "" {
		err = auth.InitFromPath(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, ttl)
	} else {
		log.Warn("no JWT key paths configured, using an ephemeral signing key")
		err = auth.Init(ttl)
	}
	if err != nil {
		return err
	}

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, closeStore, err := openRecorder(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	persist := database.NewAsyncRecorder(rec, database.AsyncOptions{Logger: log})

	gs := handlers.NewGameServer(handlers.ServerOptions{
		Config:  cfg,
		Tuning:  tuning,
		Persist: persist,
		Logger:  log,
	})
	gs.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(gs),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"backend": cfg.PersistBackend,
			"tick":    cfg.TickRate,
		}).Info("arena listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			gs.StopSchedulers()
			gs.StopReaper()
			_ = persist.Close(context.Background())
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	gs.StopSchedulers()
	gs.StopReaper()
	if err := persist.Close(shutdownCtx); err != nil {
		log.WithError(err).WithField("pending", persist.Pending()).Error("persistence did not drain before shutdown")
	}
	if n := gs.CloseConnections(); n > 0 {
		log.WithField("connections", n).Info("closed websocket connections")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown failed")
	}
	return nil
}
