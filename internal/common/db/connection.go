package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/tripstream-data/internal/common/logger"
)

// DB wraps the shared Postgres pool backing the primary trip store.
// One connection pool is built per process and reused across handler
// invocations.
type DB struct {
	conn *sql.DB
}

func New(connStr string, log logger.Logger) (*DB, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	log.Info("Database connection established")

	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) DB() *sql.DB {
	return db.conn
}
