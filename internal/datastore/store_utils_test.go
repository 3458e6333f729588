package datastore

import (
	"testing"

	"github.com/qiotlabs/aqimport/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "aq_gas_telemetry", false},
		{"valid leading underscore", "_runs", false},
		{"valid with digits", "table_2020", false},
		{"empty", "", true},
		{"leading digit", "1table", true},
		{"dash", "aq-runs", true},
		{"injection", "runs; DROP TABLE x", true},
		{"quote", `runs"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	for _, table := range allTables {
		assert.NoError(t, validateTableName(table))
	}
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`aq_import_runs`", quoteTableName(importRunsTable, schema.MySQLBackend))
	assert.Equal(t, `"aq_import_runs"`, quoteTableName(importRunsTable, schema.PostgreSQLBackend))
	assert.Equal(t, `"aq_import_runs"`, quoteTableName(importRunsTable, schema.SQLiteBackend))
}

func TestTableForFormat(t *testing.T) {
	tests := []struct {
		format   schema.TelemetryFormat
		expected string
	}{
		{schema.GasFormat, gasTable},
		{schema.PollutionFormat, pollutionTable},
		{schema.WeatherFormat, weatherTable},
	}
	for _, tt := range tests {
		got, err := tableForFormat(tt.format)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}

	_, err := tableForFormat("soot")
	assert.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?, ?, ?", placeholders(schema.SQLiteBackend, 3))
	assert.Equal(t, "?, ?", placeholders(schema.MySQLBackend, 2))
	assert.Equal(t, "$1, $2, $3", placeholders(schema.PostgreSQLBackend, 3))
	assert.Equal(t, "", placeholders(schema.SQLiteBackend, 0))
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		backend  schema.DatabaseBackend
		expected string
		wantErr  bool
	}{
		{schema.SQLiteBackend, "sqlite", false},
		{schema.MySQLBackend, "mysql", false},
		{schema.PostgreSQLBackend, "pgx", false},
		{schema.NoneBackend, "", true},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			got, err := driverFor(tt.backend)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
