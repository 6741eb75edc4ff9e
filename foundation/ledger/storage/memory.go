package storage

import (
	"sync"

	"github.com/greenledger/greenledger/foundation/ledger"
)

// Memory keeps the snapshot in process. Used by tests and throwaway
// ledgers; implements the ledger.Storage interface.
type Memory struct {
	mu       sync.Mutex
	snapshot ledger.Snapshot
	exists   bool
	saveErr  error
}

// NewMemory constructs an empty in-memory storage.
func NewMemory() *Memory {
	return &Memory{}
}

// Save keeps a copy of the snapshot in memory.
func (m *Memory) Save(snapshot ledger.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}

	m.snapshot = snapshot
	m.exists = true
	return nil
}

// Load returns the stored snapshot if Save has been called.
func (m *Memory) Load() (ledger.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshot, m.exists, nil
}

// Reset drops the stored snapshot.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot = ledger.Snapshot{}
	m.exists = false
	return nil
}

// FailWrites makes every following Save return the provided error. Pass
// nil to restore normal behavior. Supports persistence failure tests.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveErr = err
}

// Raw returns the currently stored snapshot for direct inspection or
// tampering in tests.
func (m *Memory) Raw() ledger.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshot
}

// SetRaw replaces the stored snapshot directly.
func (m *Memory) SetRaw(snapshot ledger.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot = snapshot
	m.exists = true
}
