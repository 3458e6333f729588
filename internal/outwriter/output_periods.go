package outwriter

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/qiotlabs/aqimport/schema"
)

func writePeriodsTable(w io.Writer, periods []schema.Period) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Order", "Period", "Known"})

	var data [][]string
	for i, p := range periods {
		data = append(data, []string{strconv.Itoa(i + 1), p.String(), strconv.FormatBool(schema.IsKnownPeriod(p))})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writePeriodsCSV(w io.Writer, periods []schema.Period) error {
	return writeCSVWithHeader(w, []string{"order", "period", "known"}, func(cw *csv.Writer) error {
		for i, p := range periods {
			if err := cw.Write([]string{strconv.Itoa(i + 1), p.String(), strconv.FormatBool(schema.IsKnownPeriod(p))}); err != nil {
				return err
			}
		}
		return nil
	})
}

func writePeriodsJSON(w io.Writer, periods []schema.Period) error {
	if periods == nil {
		periods = []schema.Period{}
	}
	return writeJSON(w, map[string][]schema.Period{"periods": periods})
}
