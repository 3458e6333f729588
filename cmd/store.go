package cmd

import (
	"fmt"
	"os"

	"github.com/qiotlabs/aqimport/internal/archive"
	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/internal/datastore"
	"github.com/qiotlabs/aqimport/internal/outwriter"
	"github.com/qiotlabs/aqimport/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// sqliteFilePath resolves the SQLite database file of the configured store.
func sqliteFilePath() string {
	if cfg.StoreDBConnect != "" {
		return cfg.StoreDBConnect
	}
	return contract.GetDBFilePath()
}

// storeCmd focused on telemetry store management.
//
// Note: clear and migrate load the configuration only, so they work on a
// database whose tables do not exist yet.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the telemetry store",
	Long: `Inspect and maintain the database holding imported telemetry and import runs.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show store statistics
  runs    - List recorded import runs
  export  - Export data to Parquet, optionally uploading to S3
  clear   - Remove all stored data
  migrate - Run database schema migrations

Examples:
  # Check store status
  aqimport store status

  # Export for analysis in pandas/DuckDB
  aqimport store export --output-file aqi`,
}

// storeStatusCmd shows store status.
var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display store statistics and connection details",
	Long: `Show the backend type, connection status, import run totals and table sizes.

Examples:
  aqimport store status
  aqimport store status --store-backend postgresql --store-db-connect "host=localhost dbname=aqi"`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		status, err := datastore.Manager.GetTelemetryStore().GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get store status: %w", err)
		}
		datastore.PrintStoreStatus(os.Stdout, status)
		return nil
	},
}

// storeRunsCmd lists recorded import runs.
var storeRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded import runs",
	Long: `Print every recorded import attempt with its outcome, oldest first.

Examples:
  aqimport store runs
  aqimport store runs --output csv --output-file runs.csv`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		runs, err := datastore.Manager.GetTelemetryStore().ListRuns(rootCtx)
		if err != nil {
			return fmt.Errorf("failed to list import runs: %w", err)
		}
		return outwriter.NewOutWriter().WriteRuns(runs, cfg)
	},
}

// storeClearCmd clears the store.
var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all imported telemetry and import runs",
	Long: `Delete the SQLite database file, or drop the tables of a MySQL or PostgreSQL store.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  aqimport store export --output-file backup
  aqimport store clear`,
	PreRunE: configSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := datastore.ClearStore(cfg.StoreBackend, sqliteFilePath(), cfg.StoreDBConnect); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		fmt.Println("Store cleared successfully.")
		return nil
	},
}

// storeExportCmd exports stored data to Parquet files.
var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export import runs and telemetry to Parquet",
	Long: `Export all stored data to Parquet files prefixed by --output-file:

  <prefix>.import_runs.parquet
  <prefix>.<format>.parquet   (one per format holding data)

With --s3-bucket every written file is also uploaded using the default AWS
credential chain.

Examples:
  aqimport store export --output-file aqi
  aqimport store export --output-file aqi --s3-bucket my-bucket --s3-prefix exports
  duckdb -c "SELECT city, avg(median_value) FROM read_parquet('aqi.pollution.parquet') GROUP BY city"`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		var uploader datastore.Uploader
		if cfg.S3Bucket != "" {
			s3Uploader, err := archive.NewS3Uploader(rootCtx, archive.S3Config{
				Bucket: cfg.S3Bucket,
				Prefix: cfg.S3Prefix,
				Region: cfg.S3Region,
			}, logger)
			if err != nil {
				return err
			}
			uploader = s3Uploader
		}

		store := datastore.Manager.GetTelemetryStore()
		if _, err := datastore.ExecuteExport(rootCtx, store, cfg.OutputFile, os.Stdout, uploader); err != nil {
			return fmt.Errorf("failed to export store data: %w", err)
		}
		return nil
	},
}

// storeMigrateCmd runs database migrations for the store.
var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the telemetry store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  aqimport store migrate

  # Migrate to specific version
  aqimport store migrate --target-version 1

  # Rollback to initial state
  aqimport store migrate --target-version 0`,
	PreRunE: configSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		connStr := cfg.StoreDBConnect
		if cfg.StoreBackend == schema.SQLiteBackend {
			connStr = sqliteFilePath()
		}
		targetVersion := viper.GetInt("target-version")
		if err := datastore.MigrateStore(cfg.StoreBackend, connStr, targetVersion, os.Stdout); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	},
}
