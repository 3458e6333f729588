// Package schema has models and constants shared by all parts of aqimport.
package schema

import "time"

// ImportResult records the outcome of importing one period.
// Duplicates is only populated once the import step has completed successfully.
type ImportResult struct {
	Period     Period          `json:"period"`
	Format     TelemetryFormat `json:"format"`
	Items      int             `json:"items"`      // Rows persisted by the format handler
	Duplicates int             `json:"duplicates"` // Rows removed by deduplication afterwards
	Skipped    int             `json:"skipped"`    // Rows ignored (other species or malformed)
	Duration   time.Duration   `json:"duration"`
}

// RawRecord is one line of the delimited telemetry text, split into fields
// but not yet typed.
type RawRecord struct {
	Line     int    // 1-based line number in the source stream
	Date     string // YYYY-MM-DD
	Country  string
	City     string
	Specie   string
	Count    string
	Min      string
	Max      string
	Median   string
	Variance string
}

// Measurement is the typed form of a RawRecord, ready to be persisted.
type Measurement struct {
	Period   Period  `json:"period"`
	Date     string  `json:"date"` // YYYY-MM-DD
	Country  string  `json:"country"`
	City     string  `json:"city"`
	Specie   string  `json:"specie"`
	Count    int     `json:"count"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Variance float64 `json:"variance"`
}

// ImportRun is the audit record kept for every import attempt.
type ImportRun struct {
	RunID        string          `json:"run_id"`
	Period       Period          `json:"period"`
	Format       TelemetryFormat `json:"format"`
	Status       RunStatus       `json:"status"`
	Items        int             `json:"items"`
	Duplicates   int             `json:"duplicates"`
	Skipped      int             `json:"skipped"`
	ErrorKind    ErrorKind       `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
}

// StoreStatus represents the status of the telemetry store.
type StoreStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	FailedRuns    int              `json:"failed_runs"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}
