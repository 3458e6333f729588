package importer

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/qiotlabs/aqimport/schema"
)

// PeriodImporter imports a single period.
type PeriodImporter interface {
	ImportOne(ctx context.Context, period schema.Period) (schema.ImportResult, error)
}

var _ PeriodImporter = &Importer{} // Compile-time check

// PeriodRunner imports a fixed list of periods one after the other.
type PeriodRunner struct {
	importer        PeriodImporter
	periods         []schema.Period
	continueOnError bool
	logger          *slog.Logger
}

// RunnerOption configures a PeriodRunner.
type RunnerOption func(*PeriodRunner)

// WithContinueOnError keeps importing the remaining periods after a failure.
func WithContinueOnError(enabled bool) RunnerOption {
	return func(r *PeriodRunner) {
		r.continueOnError = enabled
	}
}

// WithRunnerLogger sets the logger. The default is slog.Default.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *PeriodRunner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewPeriodRunner returns a runner over periods, kept in the given order.
func NewPeriodRunner(imp PeriodImporter, periods []schema.Period, opts ...RunnerOption) *PeriodRunner {
	r := &PeriodRunner{
		importer: imp,
		periods:  slices.Clone(periods),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Periods returns a copy of the periods in iteration order.
func (r *PeriodRunner) Periods() []schema.Period {
	return slices.Clone(r.periods)
}

// ImportAll imports every period in order and returns the results in the
// same order.
//
// By default the first failure stops the loop and the results gathered so
// far are returned with the error. With continue-on-error every period is
// attempted and the failures are joined.
func (r *PeriodRunner) ImportAll(ctx context.Context) ([]schema.ImportResult, error) {
	results := make([]schema.ImportResult, 0, len(r.periods))
	var errs []error

	for _, period := range r.periods {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result, err := r.importer.ImportOne(ctx, period)
		if err != nil {
			r.logger.Error("import failed", "period", period.String(), "error", err)
			errs = append(errs, err)
			if !r.continueOnError {
				break
			}
			continue
		}
		results = append(results, result)
	}

	r.logger.Info("import phase for all periods completed",
		"periods", len(r.periods),
		"succeeded", len(results),
		"failed", len(errs),
	)
	return results, errors.Join(errs...)
}
