package outwriter

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/schema"
)

// runLabel maps a run to its status label.
func runLabel(run schema.ImportRun) string {
	if run.Status == schema.RunFailed {
		return contract.FailedValue
	}
	if run.Items == 0 {
		return contract.EmptyValue
	}
	return contract.OKValue
}

func writeRunsTable(w io.Writer, runs []schema.ImportRun) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Started", "Period", "Format", "Items", "Duplicates", "Label", "Error"})

	var data [][]string
	for _, run := range runs {
		data = append(data, []string{
			run.StartTime.Format(time.DateTime),
			run.Period.String(),
			string(run.Format),
			strconv.Itoa(run.Items),
			strconv.Itoa(run.Duplicates),
			contract.GetColorLabel(runLabel(run)),
			string(run.ErrorKind),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeRunsCSV(w io.Writer, runs []schema.ImportRun) error {
	header := []string{"run_id", "period", "format", "status", "items", "duplicates", "skipped", "error_kind", "error_message", "start_time", "end_time"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, run := range runs {
			rec := []string{
				run.RunID,
				run.Period.String(),
				string(run.Format),
				string(run.Status),
				strconv.Itoa(run.Items),
				strconv.Itoa(run.Duplicates),
				strconv.Itoa(run.Skipped),
				string(run.ErrorKind),
				run.ErrorMessage,
				run.StartTime.UTC().Format(time.RFC3339),
				run.EndTime.UTC().Format(time.RFC3339),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
