// Package iocache persists sync history to SQL backends.
package iocache

import (
	"sync"

	"github.com/huangsam/autopush/internal/contract"
)

// HistoryStoreManager manages the HistoryStore instance.
type HistoryStoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	history      contract.HistoryStore
}

var _ contract.HistoryManager = &HistoryStoreManager{} // Compile-time check

// GetHistoryStore returns the history store, or nil when history is not initialized.
func (mgr *HistoryStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
