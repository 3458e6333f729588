// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteResults prints import results using the configured output format.
func (ow *OutWriter) WriteResults(results []schema.ImportResult, cfg *contract.Config, duration time.Duration) error {
	return dispatch(cfg, "results", func(w io.Writer) error {
		switch cfg.Output {
		case schema.JSONOut:
			return writeResultsJSON(w, results)
		case schema.CSVOut:
			return writeResultsCSV(w, results)
		default:
			return writeResultsTable(w, results, cfg, duration)
		}
	})
}

// WritePeriods prints the periods that would be imported.
func (ow *OutWriter) WritePeriods(periods []schema.Period, cfg *contract.Config) error {
	return dispatch(cfg, "periods", func(w io.Writer) error {
		switch cfg.Output {
		case schema.JSONOut:
			return writePeriodsJSON(w, periods)
		case schema.CSVOut:
			return writePeriodsCSV(w, periods)
		default:
			return writePeriodsTable(w, periods)
		}
	})
}

// WriteRuns prints the recorded import runs.
func (ow *OutWriter) WriteRuns(runs []schema.ImportRun, cfg *contract.Config) error {
	return dispatch(cfg, "runs", func(w io.Writer) error {
		switch cfg.Output {
		case schema.JSONOut:
			return writeJSON(w, runs)
		case schema.CSVOut:
			return writeRunsCSV(w, runs)
		default:
			return writeRunsTable(w, runs)
		}
	})
}

func dispatch(cfg *contract.Config, what string, write func(io.Writer) error) error {
	var msg string
	switch cfg.Output {
	case schema.JSONOut:
		msg = "Wrote JSON"
	case schema.CSVOut:
		msg = "Wrote CSV"
	default:
		msg = "Wrote table"
	}
	if err := writeWithFile(cfg.OutputFile, write, msg); err != nil {
		return fmt.Errorf("error writing %s %s output: %w", what, cfg.Output, err)
	}
	return nil
}

// ConfigureColor enables colored labels only when requested and stdout is a terminal.
func ConfigureColor(useColors bool) {
	color.NoColor = !useColors || !term.IsTerminal(int(os.Stdout.Fd()))
}
