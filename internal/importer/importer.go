// Package importer drives the retrieval of telemetry periods from the
// remote source into the store.
package importer

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/internal/metrics"
	"github.com/qiotlabs/aqimport/internal/source"
	"github.com/qiotlabs/aqimport/schema"
)

// Importer imports single periods using one format handler.
type Importer struct {
	baseURL string
	token   string
	source  contract.Source
	handler contract.FormatHandler

	runs    contract.RunStore
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Importer.
type Option func(*Importer)

// WithRunStore records an audit row for every import attempt.
func WithRunStore(runs contract.RunStore) Option {
	return func(im *Importer) {
		im.runs = runs
	}
}

// WithMetrics reports every import attempt to the recorder.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(im *Importer) {
		im.metrics = rec
	}
}

// WithLogger sets the logger. The default is slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) {
		if logger != nil {
			im.logger = logger
		}
	}
}

// New returns an Importer reading {baseURL}/{token}/{period} from src.
func New(baseURL, token string, src contract.Source, handler contract.FormatHandler, opts ...Option) *Importer {
	im := &Importer{
		baseURL: baseURL,
		token:   token,
		source:  src,
		handler: handler,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Format returns the telemetry format of the underlying handler.
func (im *Importer) Format() schema.TelemetryFormat {
	return im.handler.Format()
}

// ImportOne retrieves one period, persists it through the format handler and
// removes duplicates afterwards. On failure the zero result is returned with
// an *ImportError.
func (im *Importer) ImportOne(ctx context.Context, period schema.Period) (schema.ImportResult, error) {
	start := im.now()
	result, err := im.importOne(ctx, period)
	end := im.now()

	run := schema.ImportRun{
		RunID:     uuid.NewString(),
		Period:    period,
		Format:    im.handler.Format(),
		StartTime: start,
		EndTime:   end,
	}
	if err != nil {
		run.Status = schema.RunFailed
		run.ErrorKind = KindOf(err)
		run.ErrorMessage = err.Error()
		im.metrics.ObserveFailure(run.Format, end.Sub(start))
		im.recordRun(ctx, run)
		return schema.ImportResult{}, err
	}

	result.Duration = end.Sub(start)
	run.Status = schema.RunSucceeded
	run.Items = result.Items
	run.Duplicates = result.Duplicates
	run.Skipped = result.Skipped
	im.metrics.ObserveSuccess(result)
	im.recordRun(ctx, run)

	im.logger.Info("import phase completed",
		"period", period.String(),
		"format", string(result.Format),
		"items", result.Items,
		"duplicates", result.Duplicates,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
	return result, nil
}

func (im *Importer) importOne(ctx context.Context, period schema.Period) (schema.ImportResult, error) {
	rawURL, err := source.BuildURL(im.baseURL, im.token, period)
	if err != nil {
		return schema.ImportResult{}, &ImportError{
			Kind:   schema.SourceUnreachableKind,
			Period: period,
			Target: contract.RedactToken(im.baseURL, im.token),
			Err:    err,
		}
	}
	redacted := contract.RedactToken(rawURL, im.token)

	im.logger.Info("importing raw telemetry", "period", period.String(), "url", redacted)
	body, err := im.source.Open(ctx, rawURL)
	if err != nil {
		return schema.ImportResult{}, &ImportError{
			Kind:   schema.SourceUnreachableKind,
			Period: period,
			Target: redacted,
			Err:    redact(err, im.token),
		}
	}
	defer func() { _ = body.Close() }()

	tracked := &trackingReader{r: body}
	result, err := im.handler.Import(ctx, period, tracked)
	if err != nil {
		kind := schema.PersistErrorKind
		if tracked.err != nil {
			kind = schema.ReadErrorKind
		}
		return schema.ImportResult{}, &ImportError{Kind: kind, Period: period, Target: period.String(), Err: err}
	}

	removed, err := im.handler.RemoveDuplicates(ctx)
	if err != nil {
		return schema.ImportResult{}, &ImportError{
			Kind:   schema.PersistErrorKind,
			Period: period,
			Target: period.String(),
			Err:    err,
		}
	}

	result.Period = period
	result.Format = im.handler.Format()
	result.Duplicates = removed
	return result, nil
}

func (im *Importer) recordRun(ctx context.Context, run schema.ImportRun) {
	if im.runs == nil {
		return
	}
	// The audit row is written even when the import was cancelled
	if err := im.runs.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		im.logger.Warn("failed to record import run", "run_id", run.RunID, "error", err)
	}
}

// trackingReader remembers the first error of the wrapped stream other than io.EOF.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}

// redactedError hides the token from a cause's message while keeping the chain.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	msg := contract.RedactToken(err.Error(), token)
	if msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, err: err}
}
