// Package datastore persists telemetry measurements and import runs.
package datastore

import (
	"sync"

	"github.com/qiotlabs/aqimport/internal/contract"
)

// StoreManager holds the telemetry store used by the running process.
type StoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	telemetry    contract.TelemetryStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// NewStoreManager returns a manager wrapping an already opened store.
func NewStoreManager(store contract.TelemetryStore) *StoreManager {
	return &StoreManager{telemetry: store}
}

// GetTelemetryStore returns the telemetry store.
func (mgr *StoreManager) GetTelemetryStore() contract.TelemetryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.telemetry
}
