package cmd

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/internal/datastore"
	"github.com/qiotlabs/aqimport/internal/importer"
	"github.com/qiotlabs/aqimport/internal/metrics"
	"github.com/qiotlabs/aqimport/internal/outwriter"
	"github.com/qiotlabs/aqimport/internal/source"
	"github.com/qiotlabs/aqimport/internal/telemetry"
	"github.com/qiotlabs/aqimport/schema"
	"github.com/spf13/cobra"
)

// newImporter wires the HTTP source and format handler around store.
func newImporter(store contract.TelemetryStore, rec *metrics.Recorder) (*importer.Importer, error) {
	if err := contract.ValidateSourceConfig(cfg); err != nil {
		return nil, err
	}

	handler, err := telemetry.NewHandler(cfg.Format, store, logger)
	if err != nil {
		return nil, err
	}

	src := source.NewHTTPSource(
		source.WithTimeout(cfg.Timeout),
		source.WithUserAgent("aqimport/"+version),
		source.WithLogger(logger),
	)

	return importer.New(cfg.BaseURL, cfg.Token, src, handler,
		importer.WithRunStore(store),
		importer.WithMetrics(rec),
		importer.WithLogger(logger),
	), nil
}

// importCmd imports the configured periods one after the other.
var importCmd = &cobra.Command{
	Use:   "import [period...]",
	Short: "Import telemetry for every configured period",
	Long: `Download the historical data set of each period, persist the records of the
selected format and remove duplicates afterwards.

Periods are imported in order. The positional arguments override --periods.
The run stops at the first failure unless --continue-on-error is set.

Examples:
  # Import all known periods of pollution data
  AQIMPORT_TOKEN=... aqimport import

  # Import two quarters of gas data
  aqimport import 2020Q1 2020Q2 --format gas`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		if len(args) > 0 {
			periods, err := schema.ParsePeriods(strings.Join(args, ","))
			if err != nil {
				return err
			}
			cfg.Periods = periods
		}

		imp, err := newImporter(datastore.Manager.GetTelemetryStore(), nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		start := time.Now()
		runner := importer.NewPeriodRunner(imp, cfg.Periods,
			importer.WithContinueOnError(cfg.ContinueOnError),
			importer.WithRunnerLogger(logger),
		)
		logger.Info("starting import", "periods", runner.Periods(), "format", string(cfg.Format))
		results, importErr := runner.ImportAll(ctx)

		if err := outwriter.NewOutWriter().WriteResults(results, cfg, time.Since(start)); err != nil {
			contract.LogWarn("Failed to write results", err)
		}
		return importErr
	},
}

// periodsCmd lists the periods an import would visit.
var periodsCmd = &cobra.Command{
	Use:   "periods",
	Short: "List the periods imported by default, in order",
	Long: `Print the periods that an import run visits, honoring --periods.

Examples:
  aqimport periods
  aqimport periods --output json`,
	PreRunE: configSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return outwriter.NewOutWriter().WritePeriods(cfg.Periods, cfg)
	},
}
