package contract

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/qiotlabs/aqimport/schema"
)

// Default values for configuration.
const (
	DefaultBaseURL   = "https://aqicn.org/data-platform/covid19/report"
	DefaultTimeout   = 5 * time.Minute
	DefaultAddr      = ":8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultS3Region  = "us-east-1"
)

// Config holds the runtime configuration for the importer.
// This struct is the "final, validated" config.
type Config struct {
	BaseURL         string
	Token           string // Please use env var as this is plaintext
	Format          schema.TelemetryFormat
	Periods         []schema.Period
	Timeout         time.Duration
	ContinueOnError bool

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	Output     schema.OutputMode
	OutputFile string
	UseColors  bool

	LogLevel  slog.Level
	LogFormat string

	Addr string

	S3Bucket string
	S3Prefix string
	S3Region string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	BaseURL         string `mapstructure:"base-url"`
	Token           string `mapstructure:"token"`
	Format          string `mapstructure:"format"`
	Periods         string `mapstructure:"periods"`
	Timeout         string `mapstructure:"timeout"`
	ContinueOnError bool   `mapstructure:"continue-on-error"`
	StoreBackend    string `mapstructure:"store-backend"`
	StoreDBConnect  string `mapstructure:"store-db-connect"`
	Output          string `mapstructure:"output"`
	OutputFile      string `mapstructure:"output-file"`
	Color           string `mapstructure:"color"`
	LogLevel        string `mapstructure:"log-level"`
	LogFormat       string `mapstructure:"log-format"`

	// --- Fields from serveCmd.Flags() ---
	Addr string `mapstructure:"addr"`

	// --- Fields from storeExportCmd.Flags() ---
	S3Bucket string `mapstructure:"s3-bucket"`
	S3Prefix string `mapstructure:"s3-prefix"`
	S3Region string `mapstructure:"s3-region"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Periods != nil {
		clone.Periods = make([]schema.Period, len(c.Periods))
		copy(clone.Periods, c.Periods)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processSourceInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfig(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateSourceConfig checks the settings needed to reach the remote source.
// It is separate from ProcessAndValidate because listing periods or managing
// the store does not need credentials. The base URL is checked when each
// period's request is built, so a bad one is recorded as a failed run.
func ValidateSourceConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Token) == "" {
		return fmt.Errorf("token is required to import telemetry (set --token or AQIMPORT_TOKEN)")
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes output, logging and server fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.ContinueOnError = input.ContinueOnError
	cfg.Addr = input.Addr
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	cfg.S3Bucket = strings.TrimSpace(input.S3Bucket)
	cfg.S3Prefix = strings.Trim(strings.TrimSpace(input.S3Prefix), "/")
	cfg.S3Region = input.S3Region
	if cfg.S3Region == "" {
		cfg.S3Region = DefaultS3Region
	}

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	level, err := ParseLogLevel(input.LogLevel)
	if err != nil {
		return err
	}
	cfg.LogLevel = level

	cfg.LogFormat = strings.ToLower(input.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("invalid log format '%s'. must be text or json", input.LogFormat)
	}

	return nil
}

// processSourceInputs handles the remote source, format, period and timeout settings.
func processSourceInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.BaseURL = strings.TrimSpace(input.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.Token = strings.TrimSpace(input.Token)

	cfg.Format = schema.TelemetryFormat(strings.ToLower(input.Format))
	if _, ok := schema.ValidFormats[cfg.Format]; !ok {
		return fmt.Errorf("invalid format '%s'. must be gas, pollution, weather", input.Format)
	}

	periods, err := schema.ParsePeriods(input.Periods)
	if err != nil {
		return fmt.Errorf("invalid periods: %w", err)
	}
	cfg.Periods = periods

	cfg.Timeout = DefaultTimeout
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", input.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be greater than 0 (received %s)", input.Timeout)
		}
		cfg.Timeout = d
	}

	return nil
}

// validateBackendConfig validates the storage backend configuration.
func validateBackendConfig(cfg *Config, input *ConfigRawInput) error {
	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	return ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect)
}
