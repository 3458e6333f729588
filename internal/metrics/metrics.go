// Package metrics exposes Prometheus collectors for import runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qiotlabs/aqimport/schema"
)

const namespace = "aqimport"

// Recorder holds the import collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	imports    *prometheus.CounterVec
	items      *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewRecorder registers the import collectors plus the Go and process
// collectors on a new registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Total number of period imports by format and status",
		}, []string{"format", "status"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_imported_total",
			Help:      "Total number of measurements persisted",
		}, []string{"format"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Total number of duplicate measurements removed",
		}, []string{"format"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Total number of rows ignored during import",
		}, []string{"format"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Duration of period imports in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"format"}),
	}

	r.registry.MustRegister(
		r.imports, r.items, r.duplicates, r.skipped, r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveSuccess records a completed import.
func (r *Recorder) ObserveSuccess(result schema.ImportResult) {
	if r == nil {
		return
	}
	format := string(result.Format)
	r.imports.WithLabelValues(format, string(schema.RunSucceeded)).Inc()
	r.items.WithLabelValues(format).Add(float64(result.Items))
	r.duplicates.WithLabelValues(format).Add(float64(result.Duplicates))
	r.skipped.WithLabelValues(format).Add(float64(result.Skipped))
	r.duration.WithLabelValues(format).Observe(result.Duration.Seconds())
}

// ObserveFailure records a failed import.
func (r *Recorder) ObserveFailure(format schema.TelemetryFormat, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.imports.WithLabelValues(string(format), string(schema.RunFailed)).Inc()
	r.duration.WithLabelValues(string(format)).Observe(elapsed.Seconds())
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
