package storage

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"city-daily-digest/internal/config"
)

func sampleObservation() Observation {
	return Observation{
		Date:         time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
		ExchangeRate: decimal.RequireFromString("3.75"),
		Temperature:  decimal.RequireFromString("12.5"),
		Humidity:     decimal.NewFromInt(80),
	}
}

func openSQLite(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), config.DatabaseConfig{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "data", "observations.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendThenRead(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.Append(ctx, sampleObservation()))

	got, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	want := []Observation{sampleObservation()}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ListRecent mismatch (-want +got):\n%s", diff)
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.Append(ctx, sampleObservation()))
	require.NoError(t, store.EnsureSchema(ctx))

	got, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDuplicateDayAllowed(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	require.NoError(t, store.EnsureSchema(ctx))

	require.NoError(t, store.Append(ctx, sampleObservation()))
	require.NoError(t, store.Append(ctx, sampleObservation()))

	got, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Equal(got[1].Date))
}

func TestAppendWithoutSchemaFails(t *testing.T) {
	store := openSQLite(t)

	err := store.Append(context.Background(), sampleObservation())
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "insert observation", storeErr.Op)
}

func TestAppendTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO observations")).
		WithArgs("20261018", 3.75, 12.5, 80.0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewStore(db, DriverSQLite)
	require.NoError(t, store.Append(context.Background(), sampleObservation()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	diskFull := errors.New("disk I/O error")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO observations")).WillReturnError(diskFull)
	mock.ExpectRollback()

	store := NewStore(db, DriverSQLite)
	err = store.Append(context.Background(), sampleObservation())

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.ErrorIs(t, err, diskFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendPostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewStore(db, DriverPostgres)
	require.NoError(t, store.Append(context.Background(), sampleObservation()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRejectsInvalidObservation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	obs := sampleObservation()
	obs.ExchangeRate = decimal.Zero

	store := NewStore(db, DriverSQLite)
	require.Error(t, store.Append(context.Background(), obs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS observations")).
		WillReturnError(errors.New("read-only file system"))

	store := NewStore(db, DriverSQLite)
	var storeErr *StoreError
	require.ErrorAs(t, store.EnsureSchema(context.Background()), &storeErr)
	assert.Equal(t, "ensure schema", storeErr.Op)
}

func TestNilStore(t *testing.T) {
	var store *Store
	assert.ErrorIs(t, store.EnsureSchema(context.Background()), ErrNotConfigured)
	assert.NoError(t, store.Close())
}

func TestOpenValidation(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, config.DatabaseConfig{Driver: "mysql"})
	require.Error(t, err)

	_, err = Open(ctx, config.DatabaseConfig{Driver: DriverPostgres})
	require.Error(t, err)

	_, err = Open(ctx, config.DatabaseConfig{Driver: DriverSQLite})
	require.Error(t, err)
}

func TestListBetween(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	require.NoError(t, store.EnsureSchema(ctx))

	for _, day := range []int{16, 17, 18, 19} {
		obs := sampleObservation()
		obs.Date = time.Date(2026, 10, day, 0, 0, 0, 0, time.UTC)
		require.NoError(t, store.Append(ctx, obs))
	}

	got, err := store.ListBetween(ctx,
		time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "20261017", got[0].Date.Format(DateLayout))
	assert.Equal(t, "20261018", got[1].Date.Format(DateLayout))
}
