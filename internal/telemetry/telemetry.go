// Package telemetry implements the format handlers that turn a telemetry
// stream into persisted measurements.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/qiotlabs/aqimport/internal/aqicsv"
	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/schema"
)

// Handler imports the species of one telemetry format into the store.
type Handler struct {
	format  schema.TelemetryFormat
	species []string
	store   contract.TelemetryStore
	logger  *slog.Logger
}

var _ contract.FormatHandler = &Handler{} // Compile-time check

// NewHandler returns the handler of format writing to store.
// A nil logger selects slog.Default.
func NewHandler(format schema.TelemetryFormat, store contract.TelemetryStore, logger *slog.Logger) (*Handler, error) {
	if _, ok := schema.ValidFormats[format]; !ok {
		return nil, fmt.Errorf("unsupported telemetry format: %s", format)
	}
	if store == nil {
		return nil, errors.New("telemetry store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		format:  format,
		species: schema.GetFormatSpecies(format),
		store:   store,
		logger:  logger.With("format", string(format)),
	}, nil
}

// Format returns the telemetry format handled.
func (h *Handler) Format() schema.TelemetryFormat {
	return h.format
}

// Accepts reports whether the specie belongs to the handler's format.
func (h *Handler) Accepts(specie string) bool {
	return slices.Contains(h.species, specie)
}

// Import parses r and persists the rows of the handler's format in one
// transaction. Rows of other species and malformed rows are counted as
// skipped. Any read or persist failure rolls the transaction back.
func (h *Handler) Import(ctx context.Context, period schema.Period, r io.Reader) (schema.ImportResult, error) {
	tx, err := h.store.BeginImport(ctx, h.format)
	if err != nil {
		return schema.ImportResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	result := schema.ImportResult{Period: period, Format: h.format}
	reader := aqicsv.NewReader(r)
	for reader.Next() {
		rec, err := reader.Record()
		if err != nil {
			h.logger.Debug("skipping row", "period", period.String(), "error", err)
			result.Skipped++
			continue
		}
		if !h.Accepts(rec.Specie) {
			owner, ok := schema.FormatForSpecie(rec.Specie)
			if !ok {
				owner = "unknown"
			}
			h.logger.Debug("skipping row of another format", "period", period.String(),
				"line", rec.Line, "specie", rec.Specie, "owner", string(owner))
			result.Skipped++
			continue
		}

		m, err := aqicsv.ToMeasurement(rec, period)
		if err != nil {
			h.logger.Debug("skipping row", "period", period.String(), "error", err)
			result.Skipped++
			continue
		}
		if err := tx.Insert(ctx, m); err != nil {
			return schema.ImportResult{}, err
		}
		result.Items++
	}
	if err := reader.Err(); err != nil {
		return schema.ImportResult{}, fmt.Errorf("failed to parse %s telemetry: %w", h.format, err)
	}

	if err := tx.Commit(); err != nil {
		return schema.ImportResult{}, err
	}

	h.logger.Debug("rows persisted", "period", period.String(),
		"rows", reader.Rows(), "items", result.Items, "skipped", result.Skipped)
	return result, nil
}

// RemoveDuplicates deletes redundant rows of the handler's format.
func (h *Handler) RemoveDuplicates(ctx context.Context) (int, error) {
	return h.store.RemoveDuplicates(ctx, h.format)
}
