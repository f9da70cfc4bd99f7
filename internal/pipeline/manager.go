// Package pipeline wires the two stage handlers to their transports
// and owns the process-wide clients they share.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tripstream-data/internal/common/config"
	"github.com/tripstream-data/internal/common/db"
	"github.com/tripstream-data/internal/common/logger"
	"github.com/tripstream-data/internal/common/redisclient"
	"github.com/tripstream-data/internal/enrich"
	"github.com/tripstream-data/internal/geocode"
	"github.com/tripstream-data/internal/process"
	"github.com/tripstream-data/internal/queue"
	"github.com/tripstream-data/internal/sink"
	"github.com/tripstream-data/internal/store"
	"github.com/tripstream-data/internal/stream"
)

const (
	enrichGroup = "enrichers"
	fareGroup   = "fare-workers"
)

// Manager builds the downstream clients once, starts both stage
// consumers, and tears everything down on Stop. Clients are reused
// across every handler invocation for the life of the process.
type Manager struct {
	cfg    *config.Config
	logger logger.Logger

	redis    *redis.Client
	database *db.DB

	streamConsumer *stream.Consumer
	queueConsumer  *queue.Consumer

	mu        sync.Mutex
	isRunning bool
	cancelFn  context.CancelFunc
}

func NewManager(cfg *config.Config, log logger.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: log,
	}
}

func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning {
		return fmt.Errorf("pipeline manager is already running")
	}

	// Fatal configuration errors: neither stage may process anything.
	if err := m.cfg.ValidateEnrichment(); err != nil {
		return fmt.Errorf("enrichment stage: %w", err)
	}
	if err := m.cfg.ValidateFare(); err != nil {
		return fmt.Errorf("fare stage: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFn = cancel

	redisClient, err := redisclient.New(m.cfg.Redis.Addr(), m.logger)
	if err != nil {
		cancel()
		return err
	}
	m.redis = redisClient

	database, err := db.New(m.cfg.Database.ConnectionString(), m.logger)
	if err != nil {
		cancel()
		return err
	}
	m.database = database

	if err := m.startEnrichment(ctx); err != nil {
		cancel()
		return err
	}
	if err := m.startFare(ctx); err != nil {
		cancel()
		return err
	}

	m.isRunning = true
	m.logger.Info("Pipeline started",
		"region", m.cfg.Region,
		"ingest_stream", m.cfg.Ingest.StreamName,
		"work_queue", m.cfg.WorkQueue,
	)
	return nil
}

func (m *Manager) startEnrichment(ctx context.Context) error {
	geocoder, err := geocode.Open(m.cfg.Enrich.CatalogDir, m.cfg.Enrich.PlaceIndexName, m.logger)
	if err != nil {
		return err
	}

	workQueue := queue.New(m.redis, m.cfg.Region, m.cfg.WorkQueue)

	var deadLetter enrich.QueuePublisher
	if m.cfg.Enrich.DeadLetterStream != "" {
		deadLetter = queue.New(m.redis, m.cfg.Region, m.cfg.Enrich.DeadLetterStream)
	}

	enricher := enrich.New(geocoder, workQueue, deadLetter, m.logger)

	m.streamConsumer = stream.NewConsumer(m.redis, stream.ConsumerConfig{
		Region:       m.cfg.Region,
		Stream:       m.cfg.Ingest.StreamName,
		Shards:       m.cfg.Ingest.Shards,
		Group:        enrichGroup,
		ConsumerName: fmt.Sprintf("enricher-%s", uuid.New().String()[:8]),
		BatchSize:    m.cfg.Enrich.BatchSize,
	}, func(ctx context.Context, msgs []stream.Message) {
		res := enricher.HandleBatch(ctx, msgs)
		m.logger.Info("Enrichment batch processed",
			"processed", res.Processed,
			"skipped", res.Skipped,
			"total", res.Total,
		)
	}, m.logger)

	if err := m.streamConsumer.Start(ctx); err != nil {
		return fmt.Errorf("starting enrichment consumer: %w", err)
	}
	return nil
}

func (m *Manager) startFare(ctx context.Context) error {
	tripStore := store.New(m.database, m.cfg.Fare.TripsTable)
	if err := tripStore.EnsureSchema(ctx); err != nil {
		return err
	}

	analytics := sink.New(m.redis, m.cfg.Region, m.cfg.Fare.AnalyticsStream,
		m.cfg.Fare.DeliveryBatchSize, m.logger)

	processor := process.New(tripStore, analytics, m.logger)

	workQueue := queue.New(m.redis, m.cfg.Region, m.cfg.WorkQueue)
	m.queueConsumer = queue.NewConsumer(
		workQueue,
		fareGroup,
		fmt.Sprintf("fare-%s", uuid.New().String()[:8]),
		m.cfg.Fare.BatchSize,
		func(ctx context.Context, deliveries []queue.Delivery) {
			processor.HandleBatch(ctx, deliveries)
		},
		m.logger,
	)

	if err := m.queueConsumer.Start(ctx); err != nil {
		return fmt.Errorf("starting fare consumer: %w", err)
	}
	return nil
}

func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return
	}

	m.logger.Info("Stopping pipeline")

	if m.cancelFn != nil {
		m.cancelFn()
	}
	if m.streamConsumer != nil {
		m.streamConsumer.Wait()
	}
	if m.queueConsumer != nil {
		m.queueConsumer.Wait()
	}
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			m.logger.Error("Failed to close redis client", "error", err)
		}
	}
	if m.database != nil {
		if err := m.database.Close(); err != nil {
			m.logger.Error("Failed to close database", "error", err)
		}
	}

	m.isRunning = false
	m.logger.Info("Pipeline stopped")
}
