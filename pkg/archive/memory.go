package archive

import (
	"context"
	"sync"

	"github.com/kart-io/smsprobe/pkg/report"
)

// MemoryArchive provides an in-memory Archive implementation, suitable for
// tests and deployments without a Redis collaborator.
type MemoryArchive struct {
	mutex   sync.RWMutex
	tests   map[string]*report.TestResult
	batches map[string]*report.BatchStatus
	closed  bool
}

// NewMemoryArchive creates a new in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		tests:   make(map[string]*report.TestResult),
		batches: make(map[string]*report.BatchStatus),
	}
}

// StoreTest stores a single-test result.
func (m *MemoryArchive) StoreTest(_ context.Context, result *report.TestResult) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return ErrArchiveClosed
	}
	resultCopy := *result
	m.tests[result.TestID] = &resultCopy
	return nil
}

// StoreBatch stores a completed batch status.
func (m *MemoryArchive) StoreBatch(_ context.Context, status *report.BatchStatus) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return ErrArchiveClosed
	}
	statusCopy := *status
	m.batches[status.BatchID] = &statusCopy
	return nil
}

// GetTest retrieves a single-test result by test ID.
func (m *MemoryArchive) GetTest(_ context.Context, testID string) (*report.TestResult, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if result, ok := m.tests[testID]; ok {
		resultCopy := *result
		return &resultCopy, nil
	}
	return nil, ErrResultNotFound
}

// GetBatch retrieves a batch status by batch ID.
func (m *MemoryArchive) GetBatch(_ context.Context, batchID string) (*report.BatchStatus, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if status, ok := m.batches[batchID]; ok {
		statusCopy := *status
		return &statusCopy, nil
	}
	return nil, ErrResultNotFound
}

// Close clears the archive.
func (m *MemoryArchive) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.tests = make(map[string]*report.TestResult)
	m.batches = make(map[string]*report.BatchStatus)
	m.closed = true
	return nil
}
