package iocache

import (
	"github.com/huangsam/autopush/internal/contract"
	"github.com/huangsam/autopush/schema"
	"github.com/stretchr/testify/mock"
)

// MockHistoryManager is a mock implementation of HistoryManager for testing.
type MockHistoryManager struct {
	mock.Mock
}

var _ contract.HistoryManager = &MockHistoryManager{} // Compile-time check

// GetHistoryStore implements the HistoryManager interface.
func (m *MockHistoryManager) GetHistoryStore() contract.HistoryStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.HistoryStore)
	return store
}

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ contract.HistoryStore = &MockHistoryStore{} // Compile-time check

// RecordSync implements the HistoryStore interface.
func (m *MockHistoryStore) RecordSync(result schema.SyncResult) (int64, error) {
	args := m.Called(result)
	return args.Get(0).(int64), args.Error(1)
}

// ListSyncs implements the HistoryStore interface.
func (m *MockHistoryStore) ListSyncs(limit int) ([]schema.SyncRecord, error) {
	args := m.Called(limit)
	records, _ := args.Get(0).([]schema.SyncRecord)
	return records, args.Error(1)
}

// GetAllSyncRuns implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllSyncRuns() ([]schema.SyncRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.SyncRecord)
	return records, args.Error(1)
}

// GetAllSyncSteps implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllSyncSteps() ([]schema.StepRecord, error) {
	args := m.Called()
	records, _ := args.Get(0).([]schema.StepRecord)
	return records, args.Error(1)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus() (schema.HistoryStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.HistoryStatus), args.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
