// Package main is the entry point for the user-registration server.
//
// It stays minimal: build the logger, load configuration, start the server.
// All wiring lives in internal/server.
package main

import (
	"log/slog"
	"os"

	"github.com/malshee/user-registration/internal/config"
	"github.com/malshee/user-registration/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
