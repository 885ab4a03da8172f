// Package registry owns the shared state of all in-flight tests: a
// concurrency-safe mapping from correlation tags to mutable test records.
package registry

import (
	"sync"
	"time"

	"github.com/kart-io/smsprobe/pkg/provider"
)

// Kind distinguishes one-off tests from batch members.
type Kind string

const (
	// KindSingle is a one-off test with a blocked waiter.
	KindSingle Kind = "single"
	// KindBulkMember is one cell of a batch matrix, observed by polling.
	KindBulkMember Kind = "bulk-member"
)

// Status is the lifecycle state of a test record.
type Status string

const (
	// StatusPending means the send has been issued but not yet acknowledged.
	StatusPending Status = "pending"
	// StatusSent means the provider accepted the message.
	StatusSent Status = "sent"
	// StatusDelivered means the handset confirmed delivery. Terminal.
	StatusDelivered Status = "delivered"
	// StatusFailed means the send or the delivery failed. Terminal.
	StatusFailed Status = "failed"
	// StatusTimedOut means no final event arrived in time. Terminal.
	StatusTimedOut Status = "timed-out"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// TestRecord is the mutable state of one outbound message under test.
// All mutation happens inside Registry.Mutate; the registry hands out
// clones, never the live record.
type TestRecord struct {
	ID          string
	Kind        Kind
	BatchID     string
	MessageType provider.MessageType

	Source      string
	SourceName  string
	Destination string
	Carrier     string

	Status    Status
	CreatedAt time.Time

	SentAt            time.Time
	CarrierAcceptedAt time.Time
	DeliveredAt       time.Time

	Latency      time.Duration
	LatencyKnown bool

	ProviderMessageID string
	ErrorDetail       string

	// One-shot completion signal, present only on single-test records.
	// Safe to fire from any goroutine; observed by exactly one waiter.
	signalOnce *sync.Once
	signal     chan struct{}
}

// NewSingleRecord creates a record for a one-off test, with a completion signal.
func NewSingleRecord(id string, messageType provider.MessageType) *TestRecord {
	return &TestRecord{
		ID:          id,
		Kind:        KindSingle,
		MessageType: messageType,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
		signalOnce:  &sync.Once{},
		signal:      make(chan struct{}),
	}
}

// NewBulkRecord creates a record for a batch member. Batch members have no
// completion signal; a poller observes their state instead.
func NewBulkRecord(id, batchID string, messageType provider.MessageType) *TestRecord {
	return &TestRecord{
		ID:          id,
		Kind:        KindBulkMember,
		BatchID:     batchID,
		MessageType: messageType,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
}

// Signal fires the completion signal. Firing more than once, or firing on a
// batch member, is a no-op.
func (r *TestRecord) Signal() {
	if r.signalOnce == nil {
		return
	}
	r.signalOnce.Do(func() {
		close(r.signal)
	})
}

// Done returns the channel closed when the test reaches a terminal state.
// Returns nil for batch members; receiving from a nil channel blocks forever,
// which is correct because nobody waits on them.
func (r *TestRecord) Done() <-chan struct{} {
	return r.signal
}

// Terminal reports whether the record has reached a final state.
func (r *TestRecord) Terminal() bool {
	return r.Status.Terminal()
}

// MarkSent records provider acceptance. Only valid from Pending: a delivery
// webhook may legally have beaten the acknowledgment, and a terminal state
// must never be regressed.
func (r *TestRecord) MarkSent(messageID string, at time.Time) bool {
	if r.Status != StatusPending {
		return false
	}
	r.Status = StatusSent
	r.SentAt = at
	r.ProviderMessageID = messageID
	return true
}

// MarkCarrierAccepted records the leg-1 timestamp, at most once, and never
// on a terminal record.
func (r *TestRecord) MarkCarrierAccepted(at time.Time) bool {
	if r.Terminal() || !r.CarrierAcceptedAt.IsZero() {
		return false
	}
	r.CarrierAcceptedAt = at
	return true
}

// MarkDelivered applies the terminal delivered transition. The first terminal
// event wins; later ones are no-ops. Latency is computed once, from SentAt
// when available, falling back to CarrierAcceptedAt; with neither baseline
// the latency is reported unknown rather than computed against zero.
func (r *TestRecord) MarkDelivered(at time.Time) bool {
	if r.Terminal() {
		return false
	}
	r.Status = StatusDelivered
	r.DeliveredAt = at

	baseline := r.SentAt
	if baseline.IsZero() {
		baseline = r.CarrierAcceptedAt
	}
	if !baseline.IsZero() {
		r.Latency = at.Sub(baseline)
		r.LatencyKnown = true
	}
	return true
}

// MarkFailed applies the terminal failed transition. First terminal wins.
func (r *TestRecord) MarkFailed(detail string) bool {
	if r.Terminal() {
		return false
	}
	r.Status = StatusFailed
	r.ErrorDetail = detail
	return true
}

// MarkTimedOut applies the terminal timed-out transition. First terminal wins.
func (r *TestRecord) MarkTimedOut() bool {
	if r.Terminal() {
		return false
	}
	r.Status = StatusTimedOut
	return true
}

// Clone returns a copy sharing only the completion signal.
func (r *TestRecord) Clone() *TestRecord {
	clone := *r
	return &clone
}
