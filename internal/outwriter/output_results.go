package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/schema"
)

// writeResultsTable generates and writes the human-readable table.
func writeResultsTable(w io.Writer, results []schema.ImportResult, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Period", "Format", "Items", "Duplicates", "Skipped", "Duration", "Label"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	totalItems, totalDuplicates := 0, 0
	for _, r := range results {
		data = append(data, []string{
			r.Period.String(),
			string(r.Format),
			strconv.Itoa(r.Items),
			strconv.Itoa(r.Duplicates),
			strconv.Itoa(r.Skipped),
			r.Duration.Round(time.Millisecond).String(),
			contract.GetColorLabel(contract.GetPlainLabel(r)),
		})
		totalItems += r.Items
		totalDuplicates += r.Duplicates
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Imported %d periods (items: %d, duplicates removed: %d)\n", len(results), totalItems, totalDuplicates); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Import completed in %v. Store backend: %s\n", duration.Round(time.Millisecond), cfg.StoreBackend)
	return err
}

// writeResultsCSV writes one row per imported period.
func writeResultsCSV(w io.Writer, results []schema.ImportResult) error {
	header := []string{"period", "format", "items", "duplicates", "skipped", "duration_ms", "label"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range results {
			rec := []string{
				r.Period.String(),
				string(r.Format),
				strconv.Itoa(r.Items),
				strconv.Itoa(r.Duplicates),
				strconv.Itoa(r.Skipped),
				strconv.FormatInt(r.Duration.Milliseconds(), 10),
				contract.GetPlainLabel(r),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeResultsJSON writes the results with their labels.
func writeResultsJSON(w io.Writer, results []schema.ImportResult) error {
	type JSONImportResult struct {
		Label      string `json:"label"`
		DurationMs int64  `json:"duration_ms"`
		schema.ImportResult
	}

	output := make([]JSONImportResult, len(results))
	for i, r := range results {
		output[i] = JSONImportResult{
			Label:        contract.GetPlainLabel(r),
			DurationMs:   r.Duration.Milliseconds(),
			ImportResult: r,
		}
	}
	return writeJSON(w, output)
}
