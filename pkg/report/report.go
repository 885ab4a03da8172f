// Package report defines the result types exposed to status-query callers:
// per-leg delivery timelines for single tests and grouped member results for
// batches.
package report

import (
	"sort"
	"time"

	"github.com/kart-io/smsprobe/pkg/provider"
)

// Outcome classifies how a single test ended.
type Outcome string

const (
	// OutcomeDelivered is full success with a complete timeline.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeSentUnconfirmed is the degraded success for media messages:
	// the provider accepted the send but no confirmation webhook arrived
	// within the media timeout. Distinct from both success and failure.
	OutcomeSentUnconfirmed Outcome = "sent-unconfirmed"
	// OutcomeFailed is a hard failure (send rejected or delivery failed).
	OutcomeFailed Outcome = "failed"
	// OutcomeTimedOut is a hard timeout with no usable progress.
	OutcomeTimedOut Outcome = "timed-out"
)

// Timeline is the per-leg latency breakdown of a delivered test.
// Leg 1 runs from send acknowledgment to carrier acceptance, leg 2 from
// carrier acceptance to handset delivery.
type Timeline struct {
	SentAt            time.Time     `json:"sent_at,omitempty"`
	CarrierAcceptedAt time.Time     `json:"carrier_accepted_at,omitempty"`
	DeliveredAt       time.Time     `json:"delivered_at,omitempty"`
	Leg1Latency       time.Duration `json:"leg1_latency,omitempty"`
	Leg2Latency       time.Duration `json:"leg2_latency,omitempty"`
	TotalLatency      time.Duration `json:"total_latency,omitempty"`
	// LatencyKnown is false when the delivered event raced ahead of every
	// baseline timestamp; latencies are then meaningless and omitted.
	LatencyKnown bool `json:"latency_known"`
}

// TestResult is the terminal report for a single test.
type TestResult struct {
	TestID            string               `json:"test_id"`
	Outcome           Outcome              `json:"outcome"`
	MessageType       provider.MessageType `json:"message_type"`
	ProviderMessageID string               `json:"provider_message_id,omitempty"`
	ErrorDetail       string               `json:"error_detail,omitempty"`
	Timeline          Timeline             `json:"timeline"`
}

// MemberResult is the poll-visible state of one batch member.
type MemberResult struct {
	TestID         string               `json:"test_id"`
	SourceName     string               `json:"source_name"`
	Source         string               `json:"source"`
	Destination    string               `json:"destination"`
	Carrier        string               `json:"carrier"`
	MessageType    provider.MessageType `json:"message_type"`
	Status         string               `json:"status"`
	LatencySeconds *float64             `json:"latency_seconds,omitempty"`
	ErrorDetail    string               `json:"error_detail,omitempty"`
}

// BatchStatus is the aggregate poll response for a batch. Results are grouped
// by message type, then by source name, each group sorted fastest first with
// unknown latencies last.
type BatchStatus struct {
	BatchID  string                               `json:"batch_id"`
	Complete bool                                 `json:"is_complete"`
	Results  map[string]map[string][]MemberResult `json:"results"`
}

// GroupMembers builds the type/source grouping from a flat member list.
func GroupMembers(members []MemberResult) map[string]map[string][]MemberResult {
	grouped := make(map[string]map[string][]MemberResult)
	for _, m := range members {
		msgType := string(m.MessageType)
		if grouped[msgType] == nil {
			grouped[msgType] = make(map[string][]MemberResult)
		}
		grouped[msgType][m.SourceName] = append(grouped[msgType][m.SourceName], m)
	}
	for _, bySource := range grouped {
		for _, group := range bySource {
			SortMembers(group)
		}
	}
	return grouped
}

// SortMembers orders members by latency ascending, members without a
// measured latency last.
func SortMembers(members []MemberResult) {
	sort.SliceStable(members, func(i, j int) bool {
		li, lj := members[i].LatencySeconds, members[j].LatencySeconds
		switch {
		case li == nil:
			return false
		case lj == nil:
			return true
		default:
			return *li < *lj
		}
	})
}
