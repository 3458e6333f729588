// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/internal/importer"
)

// NewMCPServer initializes and configures the aqimport MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, imp importer.PeriodImporter, store contract.TelemetryStore) *server.MCPServer {
	s := server.NewMCPServer(
		"AQI Telemetry Import Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg:  baseCfg,
		importer: imp,
		store:    store,
	}

	s.AddTool(mcp.NewTool("list_periods",
		mcp.WithDescription("List the historical periods imported by import_all, in import order."),
	), h.handleListPeriods)

	s.AddTool(mcp.NewTool("import_period",
		mcp.WithDescription("Import the air-quality telemetry of one historical period and remove duplicates."),
		mcp.WithString("period", mcp.Description("Period name, e.g. '2020Q1'."), mcp.Required()),
	), h.handleImportPeriod)

	s.AddTool(mcp.NewTool("import_all",
		mcp.WithDescription("Import every configured period in order."),
		mcp.WithString("periods", mcp.Description("Comma-separated periods overriding the configured list.")),
		mcp.WithBoolean("continue_on_error", mcp.Description("Keep importing after a failed period.")),
	), h.handleImportAll)

	s.AddTool(mcp.NewTool("store_status",
		mcp.WithDescription("Report the telemetry store backend, row counts and import run totals."),
	), h.handleStoreStatus)

	return s
}

// StartMCPServer starts the aqimport MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, imp importer.PeriodImporter, store contract.TelemetryStore) error {
	s := NewMCPServer(baseCfg, imp, store)
	return server.ServeStdio(s)
}
