package datastore

import (
	"context"

	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetTelemetryStore implements the StoreManager interface.
func (m *MockStoreManager) GetTelemetryStore() contract.TelemetryStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.TelemetryStore)
	return store
}

// MockTelemetryStore is a mock implementation of TelemetryStore for testing.
type MockTelemetryStore struct {
	mock.Mock
}

var _ contract.TelemetryStore = &MockTelemetryStore{} // Compile-time check

// BeginImport implements the TelemetryStore interface.
func (m *MockTelemetryStore) BeginImport(ctx context.Context, format schema.TelemetryFormat) (contract.ImportTx, error) {
	args := m.Called(ctx, format)
	tx, _ := args.Get(0).(contract.ImportTx)
	return tx, args.Error(1)
}

// RemoveDuplicates implements the TelemetryStore interface.
func (m *MockTelemetryStore) RemoveDuplicates(ctx context.Context, format schema.TelemetryFormat) (int, error) {
	args := m.Called(ctx, format)
	return args.Int(0), args.Error(1)
}

// RecordRun implements the TelemetryStore interface.
func (m *MockTelemetryStore) RecordRun(ctx context.Context, run schema.ImportRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// ListRuns implements the TelemetryStore interface.
func (m *MockTelemetryStore) ListRuns(ctx context.Context) ([]schema.ImportRun, error) {
	args := m.Called(ctx)
	runs, _ := args.Get(0).([]schema.ImportRun)
	return runs, args.Error(1)
}

// ListMeasurements implements the TelemetryStore interface.
func (m *MockTelemetryStore) ListMeasurements(ctx context.Context, format schema.TelemetryFormat) ([]schema.Measurement, error) {
	args := m.Called(ctx, format)
	measurements, _ := args.Get(0).([]schema.Measurement)
	return measurements, args.Error(1)
}

// GetStatus implements the TelemetryStore interface.
func (m *MockTelemetryStore) GetStatus() (schema.StoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.StoreStatus), args.Error(1)
}

// Close implements the TelemetryStore interface.
func (m *MockTelemetryStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockImportTx is a mock implementation of ImportTx for testing.
type MockImportTx struct {
	mock.Mock
}

var _ contract.ImportTx = &MockImportTx{} // Compile-time check

// Insert implements the ImportTx interface.
func (m *MockImportTx) Insert(ctx context.Context, measurement schema.Measurement) error {
	args := m.Called(ctx, measurement)
	return args.Error(0)
}

// Commit implements the ImportTx interface.
func (m *MockImportTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

// Rollback implements the ImportTx interface.
func (m *MockImportTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}
