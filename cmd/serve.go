package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/qiotlabs/aqimport/internal/datastore"
	"github.com/qiotlabs/aqimport/internal/metrics"
	"github.com/qiotlabs/aqimport/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve imports, store status and metrics over HTTP",
	Long: `Start an HTTP API that triggers imports on demand.

Routes:
  GET  /healthz           - liveness probe
  GET  /periods           - configured periods
  POST /imports           - import every configured period
  POST /imports/{period}  - import one period
  GET  /status            - store status
  GET  /metrics           - Prometheus metrics

Only one import runs at a time; concurrent requests get 409 Conflict.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		store := datastore.Manager.GetTelemetryStore()
		rec := metrics.NewRecorder()

		imp, err := newImporter(store, rec)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(server.Options{
			Addr:            cfg.Addr,
			Importer:        imp,
			Periods:         cfg.Periods,
			ContinueOnError: cfg.ContinueOnError,
			Store:           store,
			Metrics:         rec,
			Logger:          logger,
		})
		return srv.Run(ctx)
	},
}
