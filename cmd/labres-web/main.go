package main

import (
	"fmt"
	"os"

	"github.com/labres-dev/labres/internal/config"
	"github.com/labres-dev/labres/internal/logger"
	"github.com/labres-dev/labres/internal/web"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The console is a long-running process; surface request logs by default
	level := cfg.Logging.Level
	if os.Getenv("LABRES_LOG_LEVEL") == "" {
		level = "info"
	}
	log := logger.Init(level, cfg.Logging.Format, os.Stdout)

	srv, err := web.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create web console")
	}

	log.Info().Str("version", version).Msg("Starting labres web console...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Web console failed")
	}
}
