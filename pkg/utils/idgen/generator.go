// Package idgen provides correlation tag generation for smsprobe.
//
// Tags double as the provider-side message tag, so they must be unique for
// the lifetime of a test and cheap to generate under concurrent bulk runs.
package idgen

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Generator defines the interface for tag generation.
type Generator interface {
	// Generate creates a new unique tag with the given prefix.
	Generate(prefix string) string
}

// TagGenerator produces tags in the form prefix_timestamp_counter_uuid8.
// The counter disambiguates tags created within the same nanosecond and the
// UUID component keeps tags unguessable across process restarts.
type TagGenerator struct {
	counter uint64
}

// NewTagGenerator creates a new tag generator.
func NewTagGenerator() *TagGenerator {
	return &TagGenerator{}
}

// Generate creates a new unique tag with the given prefix.
func (g *TagGenerator) Generate(prefix string) string {
	timestamp := time.Now().UnixNano()
	counter := atomic.AddUint64(&g.counter, 1)
	random := uuid.NewString()[:8]

	if prefix == "" {
		return fmt.Sprintf("%d_%d_%s", timestamp, counter, random)
	}
	return fmt.Sprintf("%s_%d_%d_%s", prefix, timestamp, counter, random)
}

var defaultGenerator = NewTagGenerator()

// SingleTestID generates a correlation tag for a one-off test.
func SingleTestID() string {
	return defaultGenerator.Generate("single")
}

// BulkMemberID generates a correlation tag for a batch member test.
func BulkMemberID() string {
	return defaultGenerator.Generate("bulk")
}

// BatchID generates an identifier grouping batch member tests.
func BatchID() string {
	return defaultGenerator.Generate("batch")
}
