// Package main is the entry point for the Pastie server.
//
// main stays minimal: read configuration, build the logger, hand both to
// internal/server and wait. Everything else lives in internal/.
//
// USAGE:
//
//	pastie                       # config.yaml in ./ or ./configs, if present
//	pastie -config /etc/pastie.yaml
//	PASTIE_CACHE_BACKEND=redis PASTIE_CACHE_REDIS_ADDR=localhost:6379 pastie
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/pastie/internal/config"
	"github.com/sakif/pastie/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// A bootstrap logger reports config errors before the level is known.
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate already checked that the level parses.
	level, _ := cfg.SlogLevel()
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Make sure the data directory exists (like `mkdir -p`).
	if !strings.Contains(cfg.DBPath, ":memory:") {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
