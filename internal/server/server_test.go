package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/qiotlabs/aqimport/internal/datastore"
	"github.com/qiotlabs/aqimport/internal/importer"
	"github.com/qiotlabs/aqimport/internal/metrics"
	"github.com/qiotlabs/aqimport/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockImporter struct {
	mock.Mock
}

func (m *mockImporter) ImportOne(ctx context.Context, period schema.Period) (schema.ImportResult, error) {
	args := m.Called(ctx, period)
	return args.Get(0).(schema.ImportResult), args.Error(1)
}

func do(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthAndPeriods(t *testing.T) {
	s := New(Options{Periods: []schema.Period{"2020Q1", "2020Q2"}})

	rec, body := do(t, s.Handler(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = do(t, s.Handler(), http.MethodGet, "/periods")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"2020Q1", "2020Q2"}, body["periods"])
}

func TestImportOneRoute(t *testing.T) {
	imp := &mockImporter{}
	imp.On("ImportOne", mock.Anything, schema.Period("2020Q1")).
		Return(schema.ImportResult{Period: "2020Q1", Format: schema.PollutionFormat, Items: 7, Duplicates: 1}, nil)

	s := New(Options{Importer: imp})
	rec, body := do(t, s.Handler(), http.MethodPost, "/imports/2020Q1")
	require.Equal(t, http.StatusOK, rec.Code)

	results := body["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "2020Q1", first["period"])
	assert.Equal(t, float64(7), first["items"])
	assert.Equal(t, float64(1), first["duplicates"])

	rec, _ = do(t, s.Handler(), http.MethodGet, "/imports/2020Q1")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestImportErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unreachable", &importer.ImportError{Kind: schema.SourceUnreachableKind, Target: "x", Err: errors.New("403")}, http.StatusBadGateway},
		{"read", &importer.ImportError{Kind: schema.ReadErrorKind, Target: "x", Err: errors.New("reset")}, http.StatusBadGateway},
		{"persist", &importer.ImportError{Kind: schema.PersistErrorKind, Target: "x", Err: errors.New("disk full")}, http.StatusInternalServerError},
		{"cancelled", context.Canceled, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := &mockImporter{}
			imp.On("ImportOne", mock.Anything, mock.Anything).Return(schema.ImportResult{}, tt.err)

			rec, body := do(t, New(Options{Importer: imp}).Handler(), http.MethodPost, "/imports/2020Q1")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.err.Error(), body["error"])
			assert.Empty(t, body["results"])
		})
	}
}

func TestImportAllRoute(t *testing.T) {
	imp := &mockImporter{}
	for _, p := range []schema.Period{"A", "B", "C"} {
		imp.On("ImportOne", mock.Anything, p).Return(schema.ImportResult{Period: p, Items: 1}, nil)
	}

	s := New(Options{Importer: imp, Periods: []schema.Period{"A", "B", "C"}})
	rec, body := do(t, s.Handler(), http.MethodPost, "/imports")
	require.Equal(t, http.StatusOK, rec.Code)

	results := body["results"].([]any)
	require.Len(t, results, 3)
	for i, p := range []string{"A", "B", "C"} {
		assert.Equal(t, p, results[i].(map[string]any)["period"])
	}
	assert.Nil(t, body["error"])
}

func TestImportAllRoutePartialFailure(t *testing.T) {
	imp := &mockImporter{}
	imp.On("ImportOne", mock.Anything, schema.Period("A")).Return(schema.ImportResult{Period: "A"}, nil)
	imp.On("ImportOne", mock.Anything, schema.Period("B")).
		Return(schema.ImportResult{}, &importer.ImportError{Kind: schema.PersistErrorKind, Target: "B", Err: errors.New("disk full")})

	s := New(Options{Importer: imp, Periods: []schema.Period{"A", "B", "C"}})
	rec, body := do(t, s.Handler(), http.MethodPost, "/imports")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, body["results"], 1)
	assert.Equal(t, "importing B: disk full", body["error"])
}

func TestConcurrentImportConflict(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	imp := &mockImporter{}
	imp.On("ImportOne", mock.Anything, schema.Period("2020Q1")).
		Return(schema.ImportResult{Period: "2020Q1"}, nil).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).Once()

	s := New(Options{Importer: imp, Periods: []schema.Period{"2020Q1"}})

	done := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/imports/2020Q1", nil))
		done <- rec.Code
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first import did not start")
	}

	rec, body := do(t, s.Handler(), http.MethodPost, "/imports")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "an import is already running", body["error"])

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestStatusRoute(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		rec, _ := do(t, New(Options{}).Handler(), http.MethodGet, "/status")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("store", func(t *testing.T) {
		store := &datastore.MockTelemetryStore{}
		store.On("GetStatus").Return(schema.StoreStatus{Backend: "sqlite", Connected: true, TotalRuns: 4}, nil)

		rec, body := do(t, New(Options{Store: store}).Handler(), http.MethodGet, "/status")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "sqlite", body["backend"])
		assert.Equal(t, float64(4), body["total_runs"])
	})

	t.Run("store error", func(t *testing.T) {
		store := &datastore.MockTelemetryStore{}
		store.On("GetStatus").Return(schema.StoreStatus{}, errors.New("locked"))

		rec, body := do(t, New(Options{Store: store}).Handler(), http.MethodGet, "/status")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "locked", body["error"])
	})
}

func TestMetricsRoute(t *testing.T) {
	recorder := metrics.NewRecorder()
	recorder.ObserveSuccess(schema.ImportResult{Format: schema.GasFormat, Items: 3})

	rec, _ := do(t, New(Options{Metrics: recorder}).Handler(), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `aqimport_items_imported_total{format="gas"} 3`)

	rec, _ = do(t, New(Options{}).Handler(), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- New(Options{Addr: "127.0.0.1:0"}).Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
