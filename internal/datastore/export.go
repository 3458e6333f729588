package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/internal/parquet"
	"github.com/qiotlabs/aqimport/schema"
)

// Uploader copies an exported file to remote storage.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// ExecuteExport writes every import run and measurement table to Parquet
// files prefixed by outputFile. When uploader is not nil each file is also
// uploaded. It returns the paths of the written files.
func ExecuteExport(ctx context.Context, store contract.TelemetryStore, outputFile string, w io.Writer, uploader Uploader) ([]string, error) {
	// Validate that output file is specified
	if outputFile == "" {
		return nil, errors.New("--output-file is required for export command")
	}

	// Check if there's any data to export
	status, err := store.GetStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TotalRuns == 0 {
		return nil, errors.New("no import runs found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total import runs: %d\n", status.TotalRuns)

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve import runs: %w", err)
	}

	var written []string
	runsFile := outputFile + ".import_runs.parquet"
	if err := parquet.WriteImportRunsParquet(parquet.ConvertImportRuns(runs), runsFile); err != nil {
		return nil, fmt.Errorf("failed to write import runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d import runs to: %s\n", len(runs), runsFile)
	written = append(written, runsFile)

	for _, format := range schema.AllFormats {
		measurements, err := store.ListMeasurements(ctx, format)
		if err != nil {
			return written, fmt.Errorf("failed to retrieve %s measurements: %w", format, err)
		}
		if len(measurements) == 0 {
			continue
		}

		formatFile := fmt.Sprintf("%s.%s.parquet", outputFile, format)
		if err := parquet.WriteMeasurementsParquet(parquet.ConvertMeasurements(format, measurements), formatFile); err != nil {
			return written, fmt.Errorf("failed to write %s measurements: %w", format, err)
		}
		_, _ = fmt.Fprintf(w, "Exported %d %s measurements to: %s\n", len(measurements), format, formatFile)
		written = append(written, formatFile)
	}

	if uploader != nil {
		for _, file := range written {
			location, err := uploader.Upload(ctx, file)
			if err != nil {
				return written, err
			}
			_, _ = fmt.Fprintf(w, "Uploaded %s to %s\n", file, location)
		}
	}

	_, _ = fmt.Fprintln(w, "\nExport complete! The Parquet files can be used with:")
	_, _ = fmt.Fprintln(w, "  - Apache Spark")
	_, _ = fmt.Fprintln(w, "  - Pandas (via pyarrow)")
	_, _ = fmt.Fprintln(w, "  - DuckDB")

	return written, nil
}
