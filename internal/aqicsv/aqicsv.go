// Package aqicsv reads the comma-separated telemetry text published by the
// AQICN historical data platform.
//
// The stream starts with optional '#' comment lines followed by a header row.
// Columns are located by header name, so their order does not matter.
package aqicsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/qiotlabs/aqimport/schema"
)

// Separator is the field delimiter of the telemetry text.
const Separator = ','

// DateLayout is the layout of the Date column.
const DateLayout = "2006-01-02"

var (
	// ErrMalformedRow marks a single row that cannot be used. The stream is
	// still readable after it.
	ErrMalformedRow = errors.New("malformed row")

	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing column")

	// ErrNoHeader is returned when the stream ends before a header row.
	ErrNoHeader = errors.New("no header row")
)

// Column names of the header, lower case.
const (
	colDate     = "date"
	colCountry  = "country"
	colCity     = "city"
	colSpecie   = "specie"
	colCount    = "count"
	colMin      = "min"
	colMax      = "max"
	colMedian   = "median"
	colVariance = "variance"
)

var requiredColumns = []string{
	colDate, colCountry, colCity, colSpecie, colCount, colMin, colMax, colMedian, colVariance,
}

// Reader iterates the records of a telemetry stream.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
	width   int

	record schema.RawRecord
	rowErr error
	err    error
	rows   int
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.Comma = Separator
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return &Reader{csv: cr}
}

// Next advances to the next record. It returns false at the end of the
// stream or on a fatal error, which is then reported by Err.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	if r.columns == nil {
		if err := r.readHeader(); err != nil {
			r.err = err
			return false
		}
	}

	fields, err := r.csv.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			r.rows++
			r.record = schema.RawRecord{Line: parseErr.Line}
			r.rowErr = fmt.Errorf("%w: line %d: %w", ErrMalformedRow, parseErr.Line, parseErr.Err)
			return true
		}
		r.err = err
		return false
	}

	line, _ := r.csv.FieldPos(0)
	r.rows++
	r.record = schema.RawRecord{Line: line}
	r.rowErr = nil
	if len(fields) < r.width {
		r.rowErr = fmt.Errorf("%w: line %d: expected %d fields, got %d", ErrMalformedRow, line, r.width, len(fields))
		return true
	}

	get := func(name string) string {
		return strings.TrimSpace(fields[r.columns[name]])
	}
	r.record.Date = get(colDate)
	r.record.Country = get(colCountry)
	r.record.City = get(colCity)
	r.record.Specie = strings.ToLower(get(colSpecie))
	r.record.Count = get(colCount)
	r.record.Min = get(colMin)
	r.record.Max = get(colMax)
	r.record.Median = get(colMedian)
	r.record.Variance = get(colVariance)
	return true
}

// Record returns the current record. A non-nil error wraps ErrMalformedRow.
func (r *Reader) Record() (schema.RawRecord, error) {
	return r.record, r.rowErr
}

// Err returns the first fatal error met while reading. Errors of the
// underlying reader are returned unchanged.
func (r *Reader) Err() error {
	return r.err
}

// Rows returns the number of data rows seen so far.
func (r *Reader) Rows() int {
	return r.rows
}

func (r *Reader) readHeader() error {
	fields, err := r.csv.Read()
	if err == io.EOF {
		return ErrNoHeader
	}
	if err != nil {
		return err
	}

	columns := make(map[string]int, len(fields))
	for i, name := range fields {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	width := 0
	for _, name := range requiredColumns {
		idx, ok := columns[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		width = max(width, idx+1)
	}

	r.columns = columns
	r.width = width
	return nil
}

// ToMeasurement converts a raw record into its typed form.
// Conversion failures wrap ErrMalformedRow.
func ToMeasurement(rec schema.RawRecord, period schema.Period) (schema.Measurement, error) {
	if _, err := time.Parse(DateLayout, rec.Date); err != nil {
		return schema.Measurement{}, fmt.Errorf("%w: line %d: bad date %q", ErrMalformedRow, rec.Line, rec.Date)
	}
	if rec.Country == "" || rec.City == "" || rec.Specie == "" {
		return schema.Measurement{}, fmt.Errorf("%w: line %d: empty location or specie", ErrMalformedRow, rec.Line)
	}

	count, err := strconv.Atoi(rec.Count)
	if err != nil {
		return schema.Measurement{}, fmt.Errorf("%w: line %d: bad count %q", ErrMalformedRow, rec.Line, rec.Count)
	}

	values := [4]float64{}
	for i, raw := range []string{rec.Min, rec.Max, rec.Median, rec.Variance} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return schema.Measurement{}, fmt.Errorf("%w: line %d: bad value %q", ErrMalformedRow, rec.Line, raw)
		}
		values[i] = v
	}

	return schema.Measurement{
		Period:   period,
		Date:     rec.Date,
		Country:  rec.Country,
		City:     rec.City,
		Specie:   rec.Specie,
		Count:    count,
		Min:      values[0],
		Max:      values[1],
		Median:   values[2],
		Variance: values[3],
	}, nil
}
