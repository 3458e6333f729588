package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/internal/datastore"
	"github.com/qiotlabs/aqimport/internal/importer"
	mcp_internal "github.com/qiotlabs/aqimport/internal/mcp"
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

func call(t *testing.T, imp importer.PeriodImporter, store contract.TelemetryStore, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	cfg := &contract.Config{Periods: []schema.Period{"2020Q1", "2020Q2"}}
	s := mcp_internal.NewMCPServer(cfg, imp, store)

	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotEmpty(t, res.Content)
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestListPeriods(t *testing.T) {
	res := call(t, nil, nil, "list_periods", nil)
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"periods": ["2020Q1", "2020Q2"]}`, text(res))
}

func TestImportPeriod(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		imp := &mockImporter{}
		imp.On("ImportOne", mock.Anything, schema.Period("2021Q4")).
			Return(schema.ImportResult{Period: "2021Q4", Format: schema.GasFormat, Items: 8}, nil)

		res := call(t, imp, nil, "import_period", map[string]any{"period": "2021Q4"})
		assert.False(t, res.IsError)

		var payload struct {
			Results []schema.ImportResult `json:"results"`
		}
		require.NoError(t, json.Unmarshal([]byte(text(res)), &payload))
		require.Len(t, payload.Results, 1)
		assert.Equal(t, 8, payload.Results[0].Items)
	})

	t.Run("missing period", func(t *testing.T) {
		res := call(t, &mockImporter{}, nil, "import_period", map[string]any{"period": ""})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "invalid period")
	})

	t.Run("import failure", func(t *testing.T) {
		imp := &mockImporter{}
		imp.On("ImportOne", mock.Anything, mock.Anything).
			Return(schema.ImportResult{}, &importer.ImportError{Kind: schema.SourceUnreachableKind, Target: "x", Err: errors.New("403")})

		res := call(t, imp, nil, "import_period", map[string]any{"period": "2020Q1"})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "connecting to x: 403")
	})
}

func TestImportAll(t *testing.T) {
	t.Run("configured periods", func(t *testing.T) {
		imp := &mockImporter{}
		imp.On("ImportOne", mock.Anything, schema.Period("2020Q1")).Return(schema.ImportResult{Period: "2020Q1"}, nil).Once()
		imp.On("ImportOne", mock.Anything, schema.Period("2020Q2")).Return(schema.ImportResult{Period: "2020Q2"}, nil).Once()

		res := call(t, imp, nil, "import_all", nil)
		assert.False(t, res.IsError)
		imp.AssertExpectations(t)
	})

	t.Run("override and continue", func(t *testing.T) {
		imp := &mockImporter{}
		imp.On("ImportOne", mock.Anything, schema.Period("A")).
			Return(schema.ImportResult{}, &importer.ImportError{Kind: schema.ReadErrorKind, Target: "A", Err: errors.New("reset")})
		imp.On("ImportOne", mock.Anything, schema.Period("B")).Return(schema.ImportResult{Period: "B", Items: 1}, nil)

		res := call(t, imp, nil, "import_all", map[string]any{"periods": "A,B", "continue_on_error": true})
		assert.True(t, res.IsError)

		var payload struct {
			Results []schema.ImportResult `json:"results"`
			Error   string                `json:"error"`
		}
		require.NoError(t, json.Unmarshal([]byte(text(res)), &payload))
		require.Len(t, payload.Results, 1)
		assert.Equal(t, schema.Period("B"), payload.Results[0].Period)
		assert.Equal(t, "reading A: reset", payload.Error)
	})

	t.Run("invalid override", func(t *testing.T) {
		res := call(t, &mockImporter{}, nil, "import_all", map[string]any{"periods": "A,A"})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "invalid periods")
	})
}

func TestStoreStatus(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		res := call(t, nil, nil, "store_status", nil)
		assert.True(t, res.IsError)
	})

	t.Run("store", func(t *testing.T) {
		store := &datastore.MockTelemetryStore{}
		store.On("GetStatus").Return(schema.StoreStatus{Backend: "postgresql", Connected: true, TotalRuns: 2}, nil)

		res := call(t, nil, store, "store_status", nil)
		assert.False(t, res.IsError)

		var status schema.StoreStatus
		require.NoError(t, json.Unmarshal([]byte(text(res)), &status))
		assert.Equal(t, "postgresql", status.Backend)
		assert.Equal(t, 2, status.TotalRuns)
	})
}
