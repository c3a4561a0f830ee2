package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the store has no database handle.
	ErrNotConfigured = errors.New("storage: database not configured")
)

// StoreError wraps any failure of the backing store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

const (
	createTableSQLite = `CREATE TABLE IF NOT EXISTS observations (
        date          TEXT NOT NULL,
        exchange_rate REAL NOT NULL,
        temperature   REAL NOT NULL,
        humidity      REAL NOT NULL
    );`

	createTablePostgres = `CREATE TABLE IF NOT EXISTS observations (
        date          TEXT NOT NULL,
        exchange_rate DOUBLE PRECISION NOT NULL,
        temperature   DOUBLE PRECISION NOT NULL,
        humidity      DOUBLE PRECISION NOT NULL
    );`

	insertObservationSQLite   = `INSERT INTO observations (date, exchange_rate, temperature, humidity) VALUES (?, ?, ?, ?);`
	insertObservationPostgres = `INSERT INTO observations (date, exchange_rate, temperature, humidity) VALUES ($1, $2, $3, $4);`

	listRecentSQLite = `SELECT date, exchange_rate, temperature, humidity
    FROM observations
    ORDER BY date DESC
    LIMIT ?;`
	listRecentPostgres = `SELECT date, exchange_rate, temperature, humidity
    FROM observations
    ORDER BY date DESC
    LIMIT $1;`

	listBetweenSQLite = `SELECT date, exchange_rate, temperature, humidity
    FROM observations
    WHERE date >= ? AND date < ?
    ORDER BY date ASC;`
	listBetweenPostgres = `SELECT date, exchange_rate, temperature, humidity
    FROM observations
    WHERE date >= $1 AND date < $2
    ORDER BY date ASC;`
)

// ObservationStore persists observations.
type ObservationStore interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, obs Observation) error
}

// ObservationReader lists stored observations.
type ObservationReader interface {
	ListRecent(ctx context.Context, limit int) ([]Observation, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]Observation, error)
}

// Store is the database/sql backed observation store.
type Store struct {
	db     *sql.DB
	create string
	insert string
	recent  string
	between string
}

// NewStore wraps db using the SQL dialect of driver.
func NewStore(db *sql.DB, driver string) *Store {
	s := &Store{
		db:      db,
		create:  createTableSQLite,
		insert:  insertObservationSQLite,
		recent:  listRecentSQLite,
		between: listBetweenSQLite,
	}
	if driver == DriverPostgres {
		s.create = createTablePostgres
		s.insert = insertObservationPostgres
		s.recent = listRecentPostgres
		s.between = listBetweenPostgres
	}
	return s
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) getDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	return s.db, nil
}

// EnsureSchema creates the observations table when it does not exist yet.
// An existing table is left untouched.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, s.create); err != nil {
		return &StoreError{Op: "ensure schema", Err: err}
	}
	return nil
}

// Append inserts obs in its own transaction on a dedicated connection. The
// connection is released on every path.
func (s *Store) Append(ctx context.Context, obs Observation) error {
	if err := obs.Validate(); err != nil {
		return &StoreError{Op: "validate observation", Err: err}
	}

	db, err := s.getDB()
	if err != nil {
		return err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return &StoreError{Op: "acquire connection", Err: err}
	}
	defer func() { _ = conn.Close() }()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "begin transaction", Err: err}
	}
	// no-op once committed
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.insert,
		obs.Date.Format(DateLayout),
		obs.ExchangeRate.InexactFloat64(),
		obs.Temperature.InexactFloat64(),
		obs.Humidity.InexactFloat64(),
	); err != nil {
		return &StoreError{Op: "insert observation", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "commit", Err: err}
	}
	return nil
}

// ListRecent returns up to limit observations, newest date first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Observation, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, s.recent, limit)
	if err != nil {
		return nil, &StoreError{Op: "list recent", Err: err}
	}
	return collect(rows, "list recent")
}

// ListBetween returns observations dated in [from, to), oldest first. Only
// the calendar day of each bound is considered.
func (s *Store) ListBetween(ctx context.Context, from, to time.Time) ([]Observation, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, s.between, from.Format(DateLayout), to.Format(DateLayout))
	if err != nil {
		return nil, &StoreError{Op: "list between", Err: err}
	}
	return collect(rows, "list between")
}

func collect(rows *sql.Rows, op string) ([]Observation, error) {
	defer func() { _ = rows.Close() }()

	var observations []Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: op, Err: err}
	}
	return observations, nil
}

func scanObservation(rows *sql.Rows) (Observation, error) {
	var (
		date        string
		rate        float64
		temperature float64
		humidity    float64
	)
	if err := rows.Scan(&date, &rate, &temperature, &humidity); err != nil {
		return Observation{}, &StoreError{Op: "scan observation", Err: err}
	}

	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return Observation{}, &StoreError{Op: "parse date", Err: err}
	}

	return Observation{
		Date:         day,
		ExchangeRate: decimal.NewFromFloat(rate),
		Temperature:  decimal.NewFromFloat(temperature),
		Humidity:     decimal.NewFromFloat(humidity),
	}, nil
}

var (
	_ ObservationStore  = (*Store)(nil)
	_ ObservationReader = (*Store)(nil)
)
