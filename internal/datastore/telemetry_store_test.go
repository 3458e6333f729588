package datastore

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/qiotlabs/aqimport/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *TelemetryStoreImpl {
	t.Helper()
	store, err := NewTelemetryStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "aqimport.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	impl, ok := store.(*TelemetryStoreImpl)
	require.True(t, ok)
	return impl
}

func milanPM25(date string) schema.Measurement {
	return schema.Measurement{
		Period: "2020Q1", Date: date, Country: "IT", City: "Milan", Specie: "pm25",
		Count: 48, Min: 12, Max: 120, Median: 61, Variance: 2034.5,
	}
}

func insertAll(t *testing.T, store *TelemetryStoreImpl, format schema.TelemetryFormat, ms ...schema.Measurement) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.BeginImport(ctx, format)
	require.NoError(t, err)
	for _, m := range ms {
		require.NoError(t, tx.Insert(ctx, m))
	}
	require.NoError(t, tx.Commit())
}

func TestTelemetryStoreImportCommit(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	insertAll(t, store, schema.PollutionFormat, milanPM25("2020-01-02"), milanPM25("2020-01-03"))

	got, err := store.ListMeasurements(ctx, schema.PollutionFormat)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, milanPM25("2020-01-02"), got[0])
	assert.Equal(t, "2020-01-03", got[1].Date)

	other, err := store.ListMeasurements(ctx, schema.GasFormat)
	require.NoError(t, err)
	assert.Empty(t, other, "Formats must not share tables")
}

func TestTelemetryStoreImportRollback(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	tx, err := store.BeginImport(ctx, schema.PollutionFormat)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, milanPM25("2020-01-02")))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, tx.Rollback(), "Second rollback should be a no-op")
	assert.ErrorIs(t, tx.Insert(ctx, milanPM25("2020-01-03")), sql.ErrTxDone)

	got, err := store.ListMeasurements(ctx, schema.PollutionFormat)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTelemetryStoreRollbackAfterCommit(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	tx, err := store.BeginImport(ctx, schema.WeatherFormat)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, schema.Measurement{Period: "2021Q4", Date: "2021-10-01", Country: "FR", City: "Paris", Specie: "temperature", Count: 10}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback())
	assert.ErrorIs(t, tx.Commit(), sql.ErrTxDone)

	got, err := store.ListMeasurements(ctx, schema.WeatherFormat)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTelemetryStoreRemoveDuplicates(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	first := milanPM25("2020-01-02")
	again := first
	again.Period = "2020Q2"
	again.Median = 99

	insertAll(t, store, schema.PollutionFormat, first, milanPM25("2020-01-03"))
	insertAll(t, store, schema.PollutionFormat, again, again)

	removed, err := store.RemoveDuplicates(ctx, schema.PollutionFormat)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	got, err := store.ListMeasurements(ctx, schema.PollutionFormat)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0], "The earliest row should survive")

	removed, err = store.RemoveDuplicates(ctx, schema.PollutionFormat)
	require.NoError(t, err)
	assert.Zero(t, removed, "Deduplication should be idempotent")
}

func TestTelemetryStoreRuns(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	failed := schema.ImportRun{
		RunID: "run-2", Period: "2020Q2", Format: schema.PollutionFormat, Status: schema.RunFailed,
		ErrorKind: schema.ReadErrorKind, ErrorMessage: "unexpected EOF",
		StartTime: start.Add(time.Minute), EndTime: start.Add(time.Minute + time.Second),
	}
	ok := schema.ImportRun{
		RunID: "run-1", Period: "2020Q1", Format: schema.PollutionFormat, Status: schema.RunSucceeded,
		Items: 120, Duplicates: 3, Skipped: 7, StartTime: start, EndTime: start.Add(2 * time.Second),
	}
	require.NoError(t, store.RecordRun(ctx, failed))
	require.NoError(t, store.RecordRun(ctx, ok))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].RunID, "Runs should be ordered by start time")
	assert.Equal(t, 120, runs[0].Items)
	assert.Equal(t, 3, runs[0].Duplicates)
	assert.Equal(t, 7, runs[0].Skipped)
	assert.True(t, start.Equal(runs[0].StartTime))
	assert.Equal(t, schema.ReadErrorKind, runs[1].ErrorKind)
	assert.Equal(t, "unexpected EOF", runs[1].ErrorMessage)

	assert.Error(t, store.RecordRun(ctx, ok), "Run IDs are unique")
}

func TestTelemetryStoreGetStatus(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Backend)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalRuns)
	assert.Len(t, status.TableSizes, len(allTables))

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	insertAll(t, store, schema.GasFormat, schema.Measurement{Period: "2019Q1", Date: "2019-01-01", Country: "CN", City: "Beijing", Specie: "no2", Count: 5})
	require.NoError(t, store.RecordRun(ctx, schema.ImportRun{RunID: "a", Period: "2019Q1", Format: schema.GasFormat, Status: schema.RunSucceeded, StartTime: start, EndTime: start}))
	require.NoError(t, store.RecordRun(ctx, schema.ImportRun{RunID: "b", Period: "2019Q2", Format: schema.GasFormat, Status: schema.RunFailed, StartTime: start.Add(time.Hour), EndTime: start.Add(time.Hour)}))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalRuns)
	assert.Equal(t, 1, status.FailedRuns)
	assert.True(t, start.Equal(status.OldestRunTime))
	assert.True(t, start.Add(time.Hour).Equal(status.LastRunTime))
	assert.Equal(t, int64(1), status.TableSizes[gasTable])
	assert.Equal(t, int64(2), status.TableSizes[importRunsTable])
	assert.Equal(t, int64(0), status.TableSizes[weatherTable])
}

func TestTelemetryStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aqimport.db")
	first, err := NewTelemetryStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	insertAll(t, first.(*TelemetryStoreImpl), schema.PollutionFormat, milanPM25("2020-01-02"))
	require.NoError(t, first.Close())

	second, err := NewTelemetryStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	got, err := second.ListMeasurements(context.Background(), schema.PollutionFormat)
	require.NoError(t, err)
	assert.Len(t, got, 1, "Table creation should not wipe existing data")
}

func TestTelemetryStoreNoneBackend(t *testing.T) {
	store, err := NewTelemetryStore(schema.NoneBackend, "")
	require.NoError(t, err)
	ctx := context.Background()

	tx, err := store.BeginImport(ctx, schema.PollutionFormat)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, milanPM25("2020-01-02")))
	require.NoError(t, tx.Commit())

	removed, err := store.RemoveDuplicates(ctx, schema.PollutionFormat)
	require.NoError(t, err)
	assert.Zero(t, removed)

	require.NoError(t, store.RecordRun(ctx, schema.ImportRun{RunID: "x"}))
	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestTelemetryStoreUnsupportedFormat(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	_, err := store.BeginImport(ctx, "soot")
	assert.Error(t, err)
	_, err = store.RemoveDuplicates(ctx, "soot")
	assert.Error(t, err)
	_, err = store.ListMeasurements(ctx, "soot")
	assert.Error(t, err)
}

func TestTelemetryStoreUnsupportedBackend(t *testing.T) {
	_, err := NewTelemetryStore("oracle", "")
	assert.Error(t, err)
}

func TestPostgresImportUsesNumberedPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := newTelemetryStore(db, schema.PostgreSQLBackend)
	m := milanPM25("2020-01-02")

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "aq_pollution_telemetry" (` + measurementColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`))
	prep.ExpectExec().
		WithArgs("2020Q1", m.Date, m.Country, m.City, m.Specie, m.Count, m.Min, m.Max, m.Median, m.Variance, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := store.BeginImport(ctx, schema.PollutionFormat)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(ctx, m))
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportInsertFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := newTelemetryStore(db, schema.MySQLBackend)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO `aq_gas_telemetry`"))
	prep.ExpectExec().WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := store.BeginImport(ctx, schema.GasFormat)
	require.NoError(t, err)
	err = tx.Insert(ctx, schema.Measurement{Specie: "co"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveDuplicatesQueries(t *testing.T) {
	tests := []struct {
		name     string
		backend  schema.DatabaseBackend
		expected string
	}{
		{"mysql self join", schema.MySQLBackend, "DELETE t1 FROM `aq_weather_telemetry` t1 INNER JOIN `aq_weather_telemetry` t2"},
		{"postgresql subquery", schema.PostgreSQLBackend, `DELETE FROM "aq_weather_telemetry" WHERE id NOT IN ( SELECT MIN(id) FROM "aq_weather_telemetry" GROUP BY sample_date, country, city, specie)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			mock.ExpectExec(regexp.QuoteMeta(tt.expected)).WillReturnResult(sqlmock.NewResult(0, 4))

			removed, err := newTelemetryStore(db, tt.backend).RemoveDuplicates(context.Background(), schema.WeatherFormat)
			require.NoError(t, err)
			assert.Equal(t, 4, removed)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRecordRunStoresMillis(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	run := schema.ImportRun{
		RunID: "r1", Period: "2020Q1", Format: schema.PollutionFormat, Status: schema.RunFailed,
		ErrorKind: schema.PersistErrorKind, ErrorMessage: "disk full",
		StartTime: start, EndTime: start.Add(1500 * time.Millisecond),
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "aq_import_runs" (` + runColumns + `) VALUES ($1,`)).
		WithArgs("r1", "2020Q1", "pollution", "failed", 0, 0, 0, "persist_error", "disk full",
			start.UnixMilli(), start.UnixMilli()+1500).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, newTelemetryStore(db, schema.PostgreSQLBackend).RecordRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}
