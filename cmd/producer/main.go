package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/tripstream-data/internal/common/config"
	"github.com/tripstream-data/internal/common/logger"
	"github.com/tripstream-data/internal/common/redisclient"
	"github.com/tripstream-data/internal/ingest"
	"github.com/tripstream-data/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(
		logger.ParseLevel(cfg.Logging.Level),
		logger.ConsoleWriter(),
	)

	if err := cfg.ValidateProducer(); err != nil {
		log.Error("Producer configuration invalid", "error", err)
		os.Exit(1)
	}

	client, err := redisclient.New(cfg.Redis.Addr(), log)
	if err != nil {
		log.Error("Failed to connect to stream transport", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	publisher := stream.NewPublisher(client, cfg.Region, cfg.Ingest.Shards, log)
	producer := ingest.New(publisher, cfg.Ingest.BatchPause, log)

	sent, err := producer.SendAll(context.Background(),
		cfg.Ingest.SourcePath, cfg.Ingest.StreamName, cfg.Ingest.BatchSize)
	if err != nil {
		log.Error("Producer run failed", "sent", sent, "error", err)
		os.Exit(1)
	}

	log.Info("Producer run complete", "sent", sent)
}
