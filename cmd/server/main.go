// Command server runs the dashboard backend: the flat-file chat log
// endpoints and the channel feed proxy, plus one headless viewer that
// keeps shared state (hype expiry, bet settlement, roster refresh)
// ticking while no tab is open.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/CapOVH/dasssb/internal/bus"
	"github.com/CapOVH/dasssb/internal/config"
	"github.com/CapOVH/dasssb/internal/server"
	"github.com/CapOVH/dasssb/internal/storage"
	"github.com/CapOVH/dasssb/internal/viewer"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()

	logger := setupLogger(cfg.Env)
	logger.Info("starting dashboard", slog.String("env", cfg.Env))

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		logger.Error("failed to create data dir", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, err := storage.OpenSQLite(filepath.Join(cfg.Data.Dir, "state.db"), logger)
	if err != nil {
		logger.Error("failed to open state store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	origin := bus.NewOrigin(store)
	v := viewer.New(origin.OpenContext(), cfg, logger)
	v.Start()
	defer v.Stop()

	srv := server.New(cfg, logger)
	if err := srv.Start(); err != nil {
		logger.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func setupLogger(env string) *slog.Logger {
	var logger *slog.Logger
	switch env {
	case envLocal:
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return logger
}
