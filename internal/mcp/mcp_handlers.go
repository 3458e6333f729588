package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/internal/importer"
	"github.com/qiotlabs/aqimport/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg  *contract.Config
	importer importer.PeriodImporter
	store    contract.TelemetryStore

	importing sync.Mutex
}

type importPayload struct {
	Results []schema.ImportResult `json:"results"`
	Error   string                `json:"error,omitempty"`
}

func jsonResult(data any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(data, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

func (h *toolHandler) handleListPeriods(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string][]schema.Period{"periods": h.baseCfg.Periods}), nil
}

func (h *toolHandler) handleImportPeriod(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	period := schema.Period(request.GetString("period", ""))
	if err := schema.ValidatePeriod(period); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid period: %v", err)), nil
	}

	if !h.importing.TryLock() {
		return mcp.NewToolResultError("an import is already running"), nil
	}
	defer h.importing.Unlock()

	result, err := h.importer.ImportOne(ctx, period)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("import failed: %v", err)), nil
	}
	return jsonResult(importPayload{Results: []schema.ImportResult{result}}), nil
}

func (h *toolHandler) handleImportAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if p := request.GetString("periods", ""); p != "" {
		periods, err := schema.ParsePeriods(p)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid periods: %v", err)), nil
		}
		cfg.Periods = periods
	}
	cfg.ContinueOnError = request.GetBool("continue_on_error", cfg.ContinueOnError)

	if !h.importing.TryLock() {
		return mcp.NewToolResultError("an import is already running"), nil
	}
	defer h.importing.Unlock()

	runner := importer.NewPeriodRunner(h.importer, cfg.Periods, importer.WithContinueOnError(cfg.ContinueOnError))
	results, err := runner.ImportAll(ctx)
	payload := importPayload{Results: results}
	if err != nil {
		payload.Error = err.Error()
		res := jsonResult(payload)
		res.IsError = true
		return res, nil
	}
	return jsonResult(payload), nil
}

func (h *toolHandler) handleStoreStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.store == nil {
		return mcp.NewToolResultError("store is not initialized"), nil
	}
	status, err := h.store.GetStatus()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get store status: %v", err)), nil
	}
	return jsonResult(status), nil
}
