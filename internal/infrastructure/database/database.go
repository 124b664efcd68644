package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/gray-logic-simulator/internal/infrastructure/config"
)

const (
	memoryPath = ":memory:"

	dirMode  = 0750
	fileMode = 0600

	pingTimeout = 5 * time.Second
	idleTimeout = 30 * time.Minute
)

// DB is the simulator's SQLite handle. The embedded *sql.DB is pinned to a
// single connection: SQLite has one writer, and an in-memory database only
// exists inside the connection that created it.
type DB struct {
	*sql.DB
	path string
}

// Open opens (creating if needed) the database at cfg.Path and verifies it
// with a ping. ":memory:" opens a private in-memory database.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	memory := cfg.Path == memoryPath
	if !memory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if memory {
		// Closing the only connection would discard the data.
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(idleTimeout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if !memory {
		_ = os.Chmod(cfg.Path, fileMode) //nolint:errcheck // file may appear on first write
	}
	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// dsn builds the go-sqlite3 connection string.
// See https://github.com/mattn/go-sqlite3#connection-string
func dsn(cfg config.DatabaseConfig) string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	if cfg.Path == memoryPath {
		return "file::memory:?" + q.Encode()
	}

	q.Set("_busy_timeout", strconv.Itoa(cfg.BusyTimeout*int(time.Second/time.Millisecond)))
	if cfg.WALMode {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Close is safe on a zero DB.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the configured path, ":memory:" included.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query. It has the signature the API's health
// endpoint expects.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
