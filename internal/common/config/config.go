package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Region    string
	Redis     RedisConfig
	Database  DatabaseConfig
	Ingest    IngestConfig
	Enrich    EnrichConfig
	Fare      FareConfig
	WorkQueue string
	Logging   LoggingConfig
}

type RedisConfig struct {
	Host string
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// IngestConfig covers the producer CLI and the ingress stream it
// publishes to.
type IngestConfig struct {
	StreamName string
	Shards     int
	SourcePath string
	BatchSize  int
	BatchPause time.Duration
}

// EnrichConfig covers the enrichment stage: the geocoding catalog it
// queries and where decode failures go.
type EnrichConfig struct {
	PlaceIndexName   string
	CatalogDir       string
	DeadLetterStream string // optional; empty disables dead-lettering
	BatchSize        int
}

// FareConfig covers the fare & persistence stage and its two sinks.
type FareConfig struct {
	TripsTable        string
	AnalyticsStream   string
	BatchSize         int
	DeliveryBatchSize int
}

type LoggingConfig struct {
	Level    string
	FilePath string
}

func Load() (*Config, error) {
	cfg := &Config{
		Region: getEnv("REGION", "ap-south-1"),
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", "localhost"),
			Port: getEnv("REDIS_PORT", "6379"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "tripstream"),
		},
		Ingest: IngestConfig{
			StreamName: getEnv("INGEST_STREAM", "taxi-trip-stream"),
			Shards:     getIntEnv("INGEST_SHARDS", 4),
			SourcePath: getEnv("CSV_FILE_PATH", "taxi_trips_1000.csv"),
			BatchSize:  getIntEnv("BATCH_SIZE", 100),
			BatchPause: getDurationEnv("BATCH_PAUSE", 100*time.Millisecond),
		},
		Enrich: EnrichConfig{
			PlaceIndexName:   os.Getenv("PLACE_INDEX_NAME"),
			CatalogDir:       getEnv("PLACE_CATALOG_DIR", "catalogs"),
			DeadLetterStream: os.Getenv("DEAD_LETTER_STREAM"),
			BatchSize:        getIntEnv("ENRICH_BATCH_SIZE", 10),
		},
		Fare: FareConfig{
			TripsTable:        os.Getenv("TRIPS_TABLE"),
			AnalyticsStream:   os.Getenv("ANALYTICS_STREAM"),
			BatchSize:         getIntEnv("FARE_BATCH_SIZE", 10),
			DeliveryBatchSize: getIntEnv("DELIVERY_BATCH_SIZE", 25),
		},
		WorkQueue: os.Getenv("WORK_QUEUE"),
		Logging: LoggingConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			FilePath: getEnv("LOG_FILE", "tripstream.log"),
		},
	}

	return cfg, nil
}

func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

// ValidateProducer reports the producer's missing required settings as
// a fatal configuration error.
func (c *Config) ValidateProducer() error {
	var missing []string
	if c.Ingest.SourcePath == "" {
		missing = append(missing, "CSV_FILE_PATH")
	}
	if c.Ingest.StreamName == "" {
		missing = append(missing, "INGEST_STREAM")
	}
	return missingError(missing)
}

// ValidateEnrichment reports the enrichment stage's missing required
// settings. The stage must process nothing when this fails.
func (c *Config) ValidateEnrichment() error {
	var missing []string
	if c.Enrich.PlaceIndexName == "" {
		missing = append(missing, "PLACE_INDEX_NAME")
	}
	if c.WorkQueue == "" {
		missing = append(missing, "WORK_QUEUE")
	}
	if c.Ingest.StreamName == "" {
		missing = append(missing, "INGEST_STREAM")
	}
	return missingError(missing)
}

// ValidateFare reports the fare & persistence stage's missing required
// settings. The stage must process nothing when this fails.
func (c *Config) ValidateFare() error {
	var missing []string
	if c.Fare.TripsTable == "" {
		missing = append(missing, "TRIPS_TABLE")
	}
	if c.Fare.AnalyticsStream == "" {
		missing = append(missing, "ANALYTICS_STREAM")
	}
	if c.WorkQueue == "" {
		missing = append(missing, "WORK_QUEUE")
	}
	return missingError(missing)
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required configuration: %v", missing)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
