// Package parquet provides data structures and functions for exporting
// persisted telemetry to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/qiotlabs/aqimport/schema"
)

// Measurement is one persisted telemetry sample.
// This struct maps to the aq_*_telemetry database tables.
type Measurement struct {
	// Format is the telemetry family the sample was imported under
	Format string `parquet:"format,snappy,dict"`

	// Period is the historical range the sample was published in
	Period string `parquet:"period,snappy,dict"`

	// SampleDate is the day of the sample (YYYY-MM-DD)
	SampleDate string `parquet:"sample_date,snappy"`

	Country string `parquet:"country,snappy,dict"`
	City    string `parquet:"city,snappy,dict"`
	Specie  string `parquet:"specie,snappy,dict"`

	// SampleCount is the number of station readings aggregated into the sample
	SampleCount int32 `parquet:"sample_count,snappy"`

	MinValue      float64 `parquet:"min_value,snappy"`
	MaxValue      float64 `parquet:"max_value,snappy"`
	MedianValue   float64 `parquet:"median_value,snappy"`
	VarianceValue float64 `parquet:"variance_value,snappy"`
}

// ImportRun is the audit row of one import attempt.
// This struct maps to the aq_import_runs database table.
type ImportRun struct {
	RunID  string `parquet:"run_id,snappy"`
	Period string `parquet:"period,snappy,dict"`
	Format string `parquet:"format,snappy,dict"`
	Status string `parquet:"status,snappy,dict"`

	Items      int32 `parquet:"items,snappy"`
	Duplicates int32 `parquet:"duplicates,snappy"`
	Skipped    int32 `parquet:"skipped,snappy"`

	// ErrorKind and ErrorMessage are only set for failed runs
	ErrorKind    *string `parquet:"error_kind,optional,snappy"`
	ErrorMessage *string `parquet:"error_message,optional,snappy"`

	StartTime time.Time `parquet:"start_time,snappy"`
	EndTime   time.Time `parquet:"end_time,snappy"`
}

// writeParquet writes rows to a new Parquet file at outputPath.
// The schema is derived from the struct tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	return file.Sync()
}

// WriteMeasurementsParquet writes a slice of Measurement structs to a Parquet file.
func WriteMeasurementsParquet(data []Measurement, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteImportRunsParquet writes a slice of ImportRun structs to a Parquet file.
func WriteImportRunsParquet(data []ImportRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertMeasurements converts schema.Measurement values of one format for Parquet export.
func ConvertMeasurements(format schema.TelemetryFormat, records []schema.Measurement) []Measurement {
	result := make([]Measurement, len(records))
	for i, record := range records {
		result[i] = Measurement{
			Format:        string(format),
			Period:        string(record.Period),
			SampleDate:    record.Date,
			Country:       record.Country,
			City:          record.City,
			Specie:        record.Specie,
			SampleCount:   int32(record.Count),
			MinValue:      record.Min,
			MaxValue:      record.Max,
			MedianValue:   record.Median,
			VarianceValue: record.Variance,
		}
	}
	return result
}

// ConvertImportRuns converts schema.ImportRun values for Parquet export.
func ConvertImportRuns(records []schema.ImportRun) []ImportRun {
	result := make([]ImportRun, len(records))
	for i, record := range records {
		run := ImportRun{
			RunID:      record.RunID,
			Period:     string(record.Period),
			Format:     string(record.Format),
			Status:     string(record.Status),
			Items:      int32(record.Items),
			Duplicates: int32(record.Duplicates),
			Skipped:    int32(record.Skipped),
			StartTime:  record.StartTime,
			EndTime:    record.EndTime,
		}
		if record.ErrorKind != "" {
			kind := string(record.ErrorKind)
			run.ErrorKind = &kind
		}
		if record.ErrorMessage != "" {
			msg := record.ErrorMessage
			run.ErrorMessage = &msg
		}
		result[i] = run
	}
	return result
}
