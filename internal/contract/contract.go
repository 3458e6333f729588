// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"io"

	"github.com/qiotlabs/aqimport/schema"
)

// Source opens streaming reads of remote telemetry text.
// This allows the importer to be tested without a real HTTP endpoint.
type Source interface {
	// Open performs the request for rawURL and returns the response body.
	// The caller must close the returned reader.
	Open(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// FormatHandler owns the record-format knowledge and storage writes for one
// telemetry format.
type FormatHandler interface {
	// Format returns the telemetry format handled.
	Format() schema.TelemetryFormat

	// Import parses r and persists the accepted records inside one transaction.
	// The returned result carries Items and Skipped; Duplicates is left at zero.
	Import(ctx context.Context, period schema.Period, r io.Reader) (schema.ImportResult, error)

	// RemoveDuplicates deletes redundant records already persisted for the format
	// and returns how many were removed.
	RemoveDuplicates(ctx context.Context) (int, error)
}

// ImportTx is the transactional scope of a single import call.
type ImportTx interface {
	Insert(ctx context.Context, m schema.Measurement) error
	Commit() error
	Rollback() error
}

// RunStore records the audit trail of import attempts.
type RunStore interface {
	RecordRun(ctx context.Context, run schema.ImportRun) error
}

// StoreManager defines the interface for managing the telemetry store.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetTelemetryStore() TelemetryStore
}

// TelemetryStore defines the interface for telemetry data storage.
type TelemetryStore interface {
	RunStore

	// BeginImport opens a transaction writing measurements of the given format.
	BeginImport(ctx context.Context, format schema.TelemetryFormat) (ImportTx, error)

	// RemoveDuplicates deletes rows sharing date, country, city and specie,
	// keeping the oldest one, and returns the number of rows removed.
	RemoveDuplicates(ctx context.Context, format schema.TelemetryFormat) (int, error)

	// ListMeasurements returns every persisted measurement of the format.
	ListMeasurements(ctx context.Context, format schema.TelemetryFormat) ([]schema.Measurement, error)

	// ListRuns returns all recorded import runs ordered by start time.
	ListRuns(ctx context.Context) ([]schema.ImportRun, error)

	// GetStatus returns status information about the store
	GetStatus() (schema.StoreStatus, error)

	// Close closes the underlying connection
	Close() error
}
