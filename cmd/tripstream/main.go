package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/tripstream-data/internal/common/config"
	"github.com/tripstream-data/internal/common/logger"
	"github.com/tripstream-data/internal/pipeline"
)

func main() {
	// Load .env if present; real deployments configure through the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(
		logger.ParseLevel(cfg.Logging.Level),
		logger.ConsoleWriter(),
		logger.FileWriter(cfg.Logging.FilePath),
	)

	log.Info("Tripstream pipeline starting",
		"version", "1.0.0",
		"log_level", cfg.Logging.Level,
		"region", cfg.Region,
		"ingest_stream", cfg.Ingest.StreamName,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := pipeline.NewManager(cfg, log)
	if err := manager.Start(ctx); err != nil {
		log.Fatal("Failed to start pipeline", "error", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutdown signal received")
	manager.Stop()
	log.Info("Tripstream pipeline stopped")
}
