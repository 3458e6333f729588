package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/schema"
	_ "modernc.org/sqlite" // SQLite driver
)

// measurementColumns is the insert column list shared by all measurement tables.
const measurementColumns = "period, sample_date, country, city, specie, sample_count, min_value, max_value, median_value, variance_value, imported_at"

// runColumns is the column list of the import runs table.
const runColumns = "run_id, period, format, status, items, duplicates, skipped, error_kind, error_message, start_time, end_time"

// TelemetryStoreImpl persists measurements and import runs using various database backends.
type TelemetryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.TelemetryStore = &TelemetryStoreImpl{} // Compile-time check

// NewTelemetryStore initializes and returns a new TelemetryStore based on the backend type.
func NewTelemetryStore(backend schema.DatabaseBackend, connStr string) (contract.TelemetryStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled persistence
		return &TelemetryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}

	// Ping to verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Verify the database file is accessible."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}

	if err := createTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create telemetry tables: %w", err)
	}

	return newTelemetryStore(db, backend), nil
}

// newTelemetryStore wraps an already prepared handle.
func newTelemetryStore(db *sql.DB, backend schema.DatabaseBackend) *TelemetryStoreImpl {
	return &TelemetryStoreImpl{db: db, backend: backend}
}

// createTables creates the measurement and run tables if needed.
func createTables(db *sql.DB, backend schema.DatabaseBackend) error {
	for _, table := range []string{gasTable, pollutionTable, weatherTable} {
		for _, query := range getCreateMeasurementQueries(table, backend) {
			if _, err := db.Exec(query); err != nil {
				return fmt.Errorf("failed to create table %s: %w", table, err)
			}
		}
	}
	if _, err := db.Exec(getCreateImportRunsQuery(backend)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", importRunsTable, err)
	}
	return nil
}

// getCreateMeasurementQueries returns the statements creating a measurement table
// and its deduplication index.
func getCreateMeasurementQueries(tableName string, backend schema.DatabaseBackend) []string {
	quotedTableName := quoteTableName(tableName, backend)
	indexName := tableName + "_key_idx"

	switch backend {
	case schema.MySQLBackend:
		return []string{fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				period VARCHAR(32) NOT NULL,
				sample_date VARCHAR(10) NOT NULL,
				country VARCHAR(64) NOT NULL,
				city VARCHAR(128) NOT NULL,
				specie VARCHAR(32) NOT NULL,
				sample_count INT NOT NULL,
				min_value DOUBLE NOT NULL,
				max_value DOUBLE NOT NULL,
				median_value DOUBLE NOT NULL,
				variance_value DOUBLE NOT NULL,
				imported_at BIGINT NOT NULL,
				INDEX %s (sample_date, country, city, specie)
			);
		`, quotedTableName, indexName)}

	case schema.PostgreSQLBackend:
		return []string{
			fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				period TEXT NOT NULL,
				sample_date TEXT NOT NULL,
				country TEXT NOT NULL,
				city TEXT NOT NULL,
				specie TEXT NOT NULL,
				sample_count INTEGER NOT NULL,
				min_value DOUBLE PRECISION NOT NULL,
				max_value DOUBLE PRECISION NOT NULL,
				median_value DOUBLE PRECISION NOT NULL,
				variance_value DOUBLE PRECISION NOT NULL,
				imported_at BIGINT NOT NULL
			);
		`, quotedTableName),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (sample_date, country, city, specie);`, indexName, quotedTableName),
		}

	default: // SQLite
		return []string{
			fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				period TEXT NOT NULL,
				sample_date TEXT NOT NULL,
				country TEXT NOT NULL,
				city TEXT NOT NULL,
				specie TEXT NOT NULL,
				sample_count INTEGER NOT NULL,
				min_value REAL NOT NULL,
				max_value REAL NOT NULL,
				median_value REAL NOT NULL,
				variance_value REAL NOT NULL,
				imported_at INTEGER NOT NULL
			);
		`, quotedTableName),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (sample_date, country, city, specie);`, indexName, quotedTableName),
		}
	}
}

// getCreateImportRunsQuery returns the CREATE TABLE query for aq_import_runs.
func getCreateImportRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(importRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id VARCHAR(36) PRIMARY KEY,
				period VARCHAR(32) NOT NULL,
				format VARCHAR(16) NOT NULL,
				status VARCHAR(16) NOT NULL,
				items INT NOT NULL,
				duplicates INT NOT NULL,
				skipped INT NOT NULL,
				error_kind VARCHAR(32) NOT NULL,
				error_message TEXT NOT NULL,
				start_time BIGINT NOT NULL,
				end_time BIGINT NOT NULL
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT PRIMARY KEY,
				period TEXT NOT NULL,
				format TEXT NOT NULL,
				status TEXT NOT NULL,
				items INTEGER NOT NULL,
				duplicates INTEGER NOT NULL,
				skipped INTEGER NOT NULL,
				error_kind TEXT NOT NULL,
				error_message TEXT NOT NULL,
				start_time BIGINT NOT NULL,
				end_time BIGINT NOT NULL
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT PRIMARY KEY,
				period TEXT NOT NULL,
				format TEXT NOT NULL,
				status TEXT NOT NULL,
				items INTEGER NOT NULL,
				duplicates INTEGER NOT NULL,
				skipped INTEGER NOT NULL,
				error_kind TEXT NOT NULL,
				error_message TEXT NOT NULL,
				start_time INTEGER NOT NULL,
				end_time INTEGER NOT NULL
			);
		`, quotedTableName)
	}
}

// disabled reports whether the store is the no-op variant.
func (ts *TelemetryStoreImpl) disabled() bool {
	return ts.backend == schema.NoneBackend || ts.db == nil
}

// BeginImport opens the transaction of one import call.
func (ts *TelemetryStoreImpl) BeginImport(ctx context.Context, format schema.TelemetryFormat) (contract.ImportTx, error) {
	table, err := tableForFormat(format)
	if err != nil {
		return nil, err
	}
	if ts.disabled() {
		return noopTx{}, nil
	}

	tx, err := ts.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteTableName(table, ts.backend), measurementColumns, placeholders(ts.backend, 11))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}

	return &importTx{tx: tx, stmt: stmt, importedAt: time.Now().Unix()}, nil
}

// RemoveDuplicates deletes rows sharing date, country, city and specie,
// keeping the row with the lowest id.
func (ts *TelemetryStoreImpl) RemoveDuplicates(ctx context.Context, format schema.TelemetryFormat) (int, error) {
	table, err := tableForFormat(format)
	if err != nil {
		return 0, err
	}
	if ts.disabled() {
		return 0, nil
	}

	res, err := ts.db.ExecContext(ctx, getRemoveDuplicatesQuery(table, ts.backend))
	if err != nil {
		return 0, fmt.Errorf("failed to remove duplicates from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed duplicates: %w", err)
	}
	return int(n), nil
}

// getRemoveDuplicatesQuery returns the backend-specific DELETE for a table.
func getRemoveDuplicatesQuery(tableName string, backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(tableName, backend)
	switch backend {
	case schema.MySQLBackend:
		// MySQL cannot select from the table being deleted from
		return fmt.Sprintf(`DELETE t1 FROM %s t1 INNER JOIN %s t2
			ON t1.sample_date = t2.sample_date AND t1.country = t2.country
			AND t1.city = t2.city AND t1.specie = t2.specie AND t1.id > t2.id`, quotedTableName, quotedTableName)

	default: // SQLite and PostgreSQL
		return fmt.Sprintf(`DELETE FROM %s WHERE id NOT IN (
			SELECT MIN(id) FROM %s GROUP BY sample_date, country, city, specie)`, quotedTableName, quotedTableName)
	}
}

// RecordRun stores the audit row of one import attempt.
func (ts *TelemetryStoreImpl) RecordRun(ctx context.Context, run schema.ImportRun) error {
	if ts.disabled() {
		return nil
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteTableName(importRunsTable, ts.backend), runColumns, placeholders(ts.backend, 11))
	_, err := ts.db.ExecContext(ctx, query,
		run.RunID, string(run.Period), string(run.Format), string(run.Status),
		run.Items, run.Duplicates, run.Skipped, string(run.ErrorKind), run.ErrorMessage,
		run.StartTime.UnixMilli(), run.EndTime.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert import run: %w", err)
	}
	return nil
}

// ListRuns returns all recorded import runs ordered by start time.
func (ts *TelemetryStoreImpl) ListRuns(ctx context.Context) ([]schema.ImportRun, error) {
	if ts.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY start_time, run_id",
		runColumns, quoteTableName(importRunsTable, ts.backend))
	rows, err := ts.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ImportRun
	for rows.Next() {
		var run schema.ImportRun
		var period, format, status, errorKind string
		var startMs, endMs int64
		if err := rows.Scan(&run.RunID, &period, &format, &status, &run.Items, &run.Duplicates,
			&run.Skipped, &errorKind, &run.ErrorMessage, &startMs, &endMs); err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		run.Period = schema.Period(period)
		run.Format = schema.TelemetryFormat(format)
		run.Status = schema.RunStatus(status)
		run.ErrorKind = schema.ErrorKind(errorKind)
		run.StartTime = time.UnixMilli(startMs)
		run.EndTime = time.UnixMilli(endMs)
		results = append(results, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import runs: %w", err)
	}
	return results, nil
}

// ListMeasurements returns every persisted measurement of the format in insertion order.
func (ts *TelemetryStoreImpl) ListMeasurements(ctx context.Context, format schema.TelemetryFormat) ([]schema.Measurement, error) {
	table, err := tableForFormat(format)
	if err != nil {
		return nil, err
	}
	if ts.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT period, sample_date, country, city, specie, sample_count,
		min_value, max_value, median_value, variance_value FROM %s ORDER BY id`, quoteTableName(table, ts.backend))
	rows, err := ts.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.Measurement
	for rows.Next() {
		var m schema.Measurement
		var period string
		if err := rows.Scan(&period, &m.Date, &m.Country, &m.City, &m.Specie, &m.Count,
			&m.Min, &m.Max, &m.Median, &m.Variance); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		m.Period = schema.Period(period)
		results = append(results, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}
	return results, nil
}

// Close closes the underlying DB connection.
func (ts *TelemetryStoreImpl) Close() error {
	if ts.db != nil {
		return ts.db.Close()
	}
	return nil
}

// GetStatus returns status information about the telemetry store.
func (ts *TelemetryStoreImpl) GetStatus() (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:    string(ts.backend),
		Connected:  ts.db != nil,
		TableSizes: make(map[string]int64),
	}

	if ts.disabled() {
		return status, nil
	}

	quotedRuns := quoteTableName(importRunsTable, ts.backend)

	// Get total runs
	row := ts.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedRuns))
	if err := row.Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		failedQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status = %s", quotedRuns, placeholders(ts.backend, 1))
		row = ts.db.QueryRow(failedQuery, string(schema.RunFailed))
		if err := row.Scan(&status.FailedRuns); err != nil {
			return status, fmt.Errorf("failed to get failed runs: %w", err)
		}

		var lastMs, oldestMs int64
		row = ts.db.QueryRow(fmt.Sprintf("SELECT MAX(start_time), MIN(start_time) FROM %s", quotedRuns))
		if err := row.Scan(&lastMs, &oldestMs); err != nil {
			return status, fmt.Errorf("failed to get run times: %w", err)
		}
		status.LastRunTime = time.UnixMilli(lastMs)
		status.OldestRunTime = time.UnixMilli(oldestMs)
	}

	// Get table sizes
	for _, table := range allTables {
		var count int64
		row = ts.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, ts.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// importTx inserts measurements through one prepared statement.
type importTx struct {
	tx         *sql.Tx
	stmt       *sql.Stmt
	importedAt int64
	done       bool
}

var _ contract.ImportTx = &importTx{} // Compile-time check

// Insert adds one measurement to the transaction.
func (it *importTx) Insert(ctx context.Context, m schema.Measurement) error {
	if it.done {
		return sql.ErrTxDone
	}
	_, err := it.stmt.ExecContext(ctx,
		string(m.Period), m.Date, m.Country, m.City, m.Specie, m.Count,
		m.Min, m.Max, m.Median, m.Variance, it.importedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert measurement: %w", err)
	}
	return nil
}

// Commit makes the inserted measurements visible.
func (it *importTx) Commit() error {
	if it.done {
		return sql.ErrTxDone
	}
	it.done = true
	_ = it.stmt.Close()
	if err := it.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

// Rollback discards the inserted measurements. It is safe to call after Commit.
func (it *importTx) Rollback() error {
	if it.done {
		return nil
	}
	it.done = true
	_ = it.stmt.Close()
	if err := it.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back import: %w", err)
	}
	return nil
}

// noopTx is the transaction of the none backend.
type noopTx struct{}

func (noopTx) Insert(context.Context, schema.Measurement) error { return nil }
func (noopTx) Commit() error                                   { return nil }
func (noopTx) Rollback() error                                 { return nil }
