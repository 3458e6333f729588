// Package server exposes imports and store status over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/internal/importer"
	"github.com/qiotlabs/aqimport/internal/metrics"
	"github.com/qiotlabs/aqimport/schema"
)

// Options holds the collaborators of the server.
type Options struct {
	Addr            string
	Importer        importer.PeriodImporter
	Periods         []schema.Period
	ContinueOnError bool
	Store           contract.TelemetryStore
	Metrics         *metrics.Recorder
	Logger          *slog.Logger
}

// Server represents the HTTP API server.
type Server struct {
	opts   Options
	router chi.Router
	logger *slog.Logger

	// importing is held while an import request runs
	importing sync.Mutex
}

// New constructs a server with all routes wired.
func New(opts Options) *Server {
	s := &Server{opts: opts, logger: opts.Logger}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/periods", s.handlePeriods)
	r.Post("/imports", s.handleImportAll)
	r.Post("/imports/{period}", s.handleImportOne)
	r.Get("/status", s.handleStatus)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	s.router = r
	return s
}

// Handler exposes the HTTP handler for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server until context cancellation.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type importResponse struct {
	Results []schema.ImportResult `json:"results"`
	Error   string                `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePeriods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]schema.Period{"periods": s.opts.Periods})
}

func (s *Server) handleImportAll(w http.ResponseWriter, r *http.Request) {
	if !s.importing.TryLock() {
		writeError(w, http.StatusConflict, "an import is already running")
		return
	}
	defer s.importing.Unlock()

	runner := importer.NewPeriodRunner(s.opts.Importer, s.opts.Periods,
		importer.WithContinueOnError(s.opts.ContinueOnError), importer.WithRunnerLogger(s.logger))
	results, err := runner.ImportAll(r.Context())

	resp := importResponse{Results: results}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleImportOne(w http.ResponseWriter, r *http.Request) {
	period := schema.Period(chi.URLParam(r, "period"))
	if err := schema.ValidatePeriod(period); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.importing.TryLock() {
		writeError(w, http.StatusConflict, "an import is already running")
		return
	}
	defer s.importing.Unlock()

	result, err := s.opts.Importer.ImportOne(r.Context(), period)
	if err != nil {
		writeJSON(w, statusFor(err), importResponse{Results: []schema.ImportResult{}, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Results: []schema.ImportResult{result}})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "store is not initialized")
		return
	}
	status, err := s.opts.Store.GetStatus()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// statusFor maps an import failure to the response status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, importer.ErrSourceUnreachable), errors.Is(err, importer.ErrRead):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
