// Package app wires the gateway together for serve mode.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alex-user-go/shipcompare/internal/api"
	"github.com/alex-user-go/shipcompare/internal/config"
	"github.com/alex-user-go/shipcompare/internal/handler"
	"github.com/alex-user-go/shipcompare/internal/middleware"
	"github.com/alex-user-go/shipcompare/internal/obs"
	"github.com/alex-user-go/shipcompare/internal/query"
	"github.com/alex-user-go/shipcompare/internal/ratelimit"
	"github.com/alex-user-go/shipcompare/internal/service"
	"github.com/alex-user-go/shipcompare/internal/session"
)

// Run starts the gateway and blocks until interrupted.
func Run(cfg *config.Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	metrics := obs.NewMetrics()

	if err := os.MkdirAll(filepath.Dir(cfg.Session.Path), 0o700); err != nil {
		return err
	}
	sessions, err := session.Open(cfg.Session.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = sessions.Close()
	}()

	backend := api.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, sessions, logger)

	cache := query.New()
	defer cache.Close()

	svc := service.New(backend, cache, metrics, logger)

	limiter := ratelimit.New(cfg.Gateway.RateLimit, cfg.Gateway.RateWindow)
	defer limiter.Close()

	h := handler.New(svc, limiter, logger)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /healthz", obs.HealthHandler(logger))
	mux.Handle("GET /metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         cfg.Gateway.Addr,
		Handler:      middleware.Instrument(logger, metrics)(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting gateway", "addr", srv.Addr, "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gateway")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}

	logger.Info("gateway stopped")
	return nil
}
