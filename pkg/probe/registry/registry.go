package registry

import (
	"sync"
	"time"

	"github.com/kart-io/smsprobe/pkg/errors"
	"github.com/kart-io/smsprobe/pkg/logger"
)

// Registry is the concurrency-safe mapping from correlation tags to test
// records. It is the only shared mutable resource in the probe engine: the
// dispatcher, the event correlator, and the wait/poll façade communicate
// exclusively through it.
//
// One coarse lock guards all records. Mutations are applied through Mutate,
// which holds the lock across the whole read-modify-write, so two webhook
// events for the same test can never interleave into an inconsistent record.
// Callbacks passed to Mutate must not block and must not call back into the
// registry.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*TestRecord
	batches map[string]time.Time
	logger  logger.Logger
}

// New creates an empty registry.
func New(log logger.Logger) *Registry {
	if log == nil {
		log = logger.Discard
	}
	return &Registry{
		records: make(map[string]*TestRecord),
		batches: make(map[string]time.Time),
		logger:  log,
	}
}

// Create registers a new record. The record must be registered before its
// send is issued, so a webhook racing the acknowledgment always finds it.
func (r *Registry) Create(rec *TestRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.ID]; exists {
		return errors.Newf(errors.ErrDuplicateTest, "test %s already registered", rec.ID)
	}
	r.records[rec.ID] = rec
	return nil
}

// Get returns a clone of the record, or false when absent.
func (r *Registry) Get(id string) (*TestRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Mutate atomically applies fn to the record if present and reports whether
// it existed. The registry lock is held for the duration of fn.
func (r *Registry) Mutate(id string, fn func(*TestRecord)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return false
	}
	fn(rec)
	return true
}

// Remove deletes and returns the record, or nil when absent.
func (r *Registry) Remove(id string) *TestRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil
	}
	delete(r.records, id)
	return rec
}

// RemoveWhere deletes every record matching the predicate and returns them.
func (r *Registry) RemoveWhere(pred func(*TestRecord) bool) []*TestRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*TestRecord
	for id, rec := range r.records {
		if pred(rec) {
			removed = append(removed, rec)
			delete(r.records, id)
		}
	}
	return removed
}

// MembersOf returns clones of every record belonging to the batch.
func (r *Registry) MembersOf(batchID string) []*TestRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var members []*TestRecord
	for _, rec := range r.records {
		if rec.Kind == KindBulkMember && rec.BatchID == batchID {
			members = append(members, rec.Clone())
		}
	}
	return members
}

// Len returns the number of live records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// CreateBatch registers batch bookkeeping: the start time anchors the
// batch-wide timeout.
func (r *Registry) CreateBatch(batchID string, startedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[batchID] = startedAt
}

// BatchStartedAt returns the batch start time, or false for unknown batches.
func (r *Registry) BatchStartedAt(batchID string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	startedAt, ok := r.batches[batchID]
	return startedAt, ok
}

// RemoveBatch deletes the batch bookkeeping entry.
func (r *Registry) RemoveBatch(batchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.batches, batchID)
}
