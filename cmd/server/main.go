package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/agenthands/lineage/internal/config"
	"github.com/agenthands/lineage/internal/core"
	"github.com/agenthands/lineage/internal/driver"
	"github.com/agenthands/lineage/internal/logger"
	"github.com/agenthands/lineage/internal/logger/console"
	"github.com/agenthands/lineage/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a TOML config file")
	flag.Parse()

	envErr := godotenv.Load()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{}))
			logger.Fatal("Failed to load configuration", "err", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Debug: cfg.Log.Debug}))
	if envErr != nil {
		logger.Debug("No .env file found, using environment")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := driver.Open(ctx, *cfg)
	if err != nil {
		logger.Fatal("Failed to open store", "backend", cfg.Store.Backend, "err", err)
	}
	l := core.NewLineage(d)

	var seed []byte
	if cfg.Ingest.SeedJSON != "" {
		seed, err = os.ReadFile(cfg.Ingest.SeedJSON)
		if err != nil {
			logger.Fatal("Failed to read seed document", "path", cfg.Ingest.SeedJSON, "err", err)
		}
	}
	if report, err := l.Bootstrap(ctx, seed); err != nil {
		logger.Fatal("Failed to bootstrap store", "err", err)
	} else if report != nil {
		logger.Info("Store seeded", "persons", report.PersonsImported, "closure_rows", report.ClosureRows)
	}

	srv := server.NewServer(l, cfg.Server.AdminToken, cfg.Ingest.WithClosure)
	runErr := srv.Run(ctx, ":"+cfg.Server.Port)
	if err := l.Close(context.Background()); err != nil {
		logger.Warn("Failed to close store", "err", err)
	}
	if runErr != nil {
		logger.Error("Server stopped", "err", runErr)
		os.Exit(1)
	}
}
