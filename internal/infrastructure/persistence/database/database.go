// Package database provides the core functionality for creating and managing
// the engine's database connection in a clean, isolated manner.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/pkg/config"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	Driver string
}

// Connect opens the configured backing store. A hosted libsql database is
// used when LIBSQL_URL is set; otherwise a local SQLite file.
func Connect(logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()

	var driver, dsn string
	if config.DBDriver == "libsql" || config.LibsqlURL != "" {
		driver = "libsql"
		dsn = config.LibsqlURL
		if config.LibsqlAuthToken != "" {
			dsn += "?authToken=" + config.LibsqlAuthToken
		}
	} else {
		driver = "sqlite3"
		dbDir := filepath.Dir(config.SQLitePath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = config.SQLitePath
	}

	logger.Database().Debug("Creating database connection", "driver", driver)

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driver", driver)
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if err = conn.Ping(); err != nil {
		conn.Close()
		logger.Database().Error("Database ping failed", "error", err.Error(), "driver", driver)
		return nil, fmt.Errorf("%s database ping failed: %w", driver, err)
	}

	conn.SetMaxOpenConns(config.DBMaxOpenConns)
	conn.SetMaxIdleConns(config.DBMaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute)
	conn.SetConnMaxIdleTime(time.Duration(config.DBConnMaxIdleMinutes) * time.Minute)

	logger.Database().Info("Database connection established", "driver", driver, "duration", time.Since(start))

	return &DB{DB: conn, Driver: driver}, nil
}

// EnsureSchema creates the crisis event table when it does not exist yet.
// Entries are append-only; there is deliberately no DELETE path.
func (db *DB) EnsureSchema(logger *logging.ChanneledLogger) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS crisis_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		severity TEXT NOT NULL,
		risk_level INTEGER NOT NULL,
		categories TEXT NOT NULL,
		escalation_required INTEGER NOT NULL,
		false_positive INTEGER NOT NULL DEFAULT 0,
		feedback TEXT,
		escalation_outcome TEXT,
		contextual_data TEXT,
		intervention_result TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_crisis_events_user_created
		ON crisis_events(user_id, created_at);`

	start := time.Now()
	if _, err := db.Exec(schema); err != nil {
		logger.Database().Error("Schema creation failed", "error", err.Error())
		return fmt.Errorf("failed to ensure crisis_events schema: %w", err)
	}

	logger.Database().Info("Schema verified", "table", "crisis_events", "duration", time.Since(start))
	return nil
}
