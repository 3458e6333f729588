package contract

import (
	"context"
	"io"

	"github.com/qiotlabs/aqimport/schema"
	"github.com/stretchr/testify/mock"
)

// MockSource is a mock implementation of Source for testing.
type MockSource struct {
	mock.Mock
}

var _ Source = &MockSource{} // Compile-time check

// Open implements the Source interface.
func (m *MockSource) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	args := m.Called(ctx, rawURL)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

// MockFormatHandler is a mock implementation of FormatHandler for testing.
type MockFormatHandler struct {
	mock.Mock
}

var _ FormatHandler = &MockFormatHandler{} // Compile-time check

// Format implements the FormatHandler interface.
func (m *MockFormatHandler) Format() schema.TelemetryFormat {
	args := m.Called()
	return args.Get(0).(schema.TelemetryFormat)
}

// Import implements the FormatHandler interface.
func (m *MockFormatHandler) Import(ctx context.Context, period schema.Period, r io.Reader) (schema.ImportResult, error) {
	args := m.Called(ctx, period, r)
	return args.Get(0).(schema.ImportResult), args.Error(1)
}

// RemoveDuplicates implements the FormatHandler interface.
func (m *MockFormatHandler) RemoveDuplicates(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ RunStore = &MockRunStore{} // Compile-time check

// RecordRun implements the RunStore interface.
func (m *MockRunStore) RecordRun(ctx context.Context, run schema.ImportRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}
