package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"city-daily-digest/internal/config"
)

const (
	// DriverSQLite stores observations in a local database file.
	DriverSQLite = "sqlite"
	// DriverPostgres stores observations in PostgreSQL.
	DriverPostgres = "postgres"
)

// Open connects to the configured backend and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		path := cfg.Path
		if path == "" {
			return nil, fmt.Errorf("database.path is required for sqlite")
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, &StoreError{Op: "create data directory", Err: err}
			}
		}
		db, err = sql.Open("sqlite", path)
		if err != nil {
			return nil, &StoreError{Op: "open sqlite", Err: err}
		}
		// single writer; avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database.dsn is required for postgres")
		}
		db, err = sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, &StoreError{Op: "open postgres", Err: err}
		}
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	default:
		return nil, fmt.Errorf("unsupported database.driver %q", cfg.Driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &StoreError{Op: "ping", Err: err}
	}

	return NewStore(db, driver), nil
}
