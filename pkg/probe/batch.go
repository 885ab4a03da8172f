package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/smsprobe/pkg/config"
	"github.com/kart-io/smsprobe/pkg/errors"
	"github.com/kart-io/smsprobe/pkg/probe/registry"
	"github.com/kart-io/smsprobe/pkg/provider"
	"github.com/kart-io/smsprobe/pkg/report"
	"github.com/kart-io/smsprobe/pkg/utils/idgen"
)

// BatchSpec describes the test matrix for a bulk run: every combination of
// destination, source, and message type becomes one batch member.
type BatchSpec struct {
	Sources      []config.SourceNumber
	Destinations []config.Destination
	MessageTypes []provider.MessageType
}

// StartBatch fans out the matrix as independent sends sharing one batch
// identifier. Every record is registered before its send is issued, so a
// webhook racing the acknowledgment always finds its record. Returns the
// batch identifier for subsequent polling.
func (e *Engine) StartBatch(ctx context.Context, spec BatchSpec) (string, error) {
	if len(spec.Sources) == 0 || len(spec.Destinations) == 0 || len(spec.MessageTypes) == 0 {
		return "", errors.New(errors.ErrInvalidConfig, "batch matrix must not be empty")
	}
	for _, msgType := range spec.MessageTypes {
		if !msgType.Valid() {
			return "", errors.Newf(errors.ErrInvalidConfig, "unknown message type %q", msgType)
		}
	}

	batchID := idgen.BatchID()
	e.registry.CreateBatch(batchID, time.Now())

	count := 0
	for _, dest := range spec.Destinations {
		for _, src := range spec.Sources {
			for _, msgType := range spec.MessageTypes {
				id := idgen.BulkMemberID()
				rec := registry.NewBulkRecord(id, batchID, msgType)
				rec.Source = src.Number
				rec.SourceName = src.Name
				rec.Destination = dest.Number
				rec.Carrier = dest.Carrier

				if err := e.registry.Create(rec); err != nil {
					// Tags are generator-unique; a collision here is a bug,
					// skip the cell rather than abort the batch.
					e.logger.Error("Failed to register batch member", "tag", id, "error", err)
					continue
				}
				e.telemetry.RecordTestStarted(ctx, string(msgType))

				memberSpec := SingleSpec{
					Source:      src,
					Destination: dest.Number,
					Carrier:     dest.Carrier,
					MessageType: msgType,
					Body:        fmt.Sprintf("%s %s Test", src.Name, strings.ToUpper(string(msgType))),
				}
				e.dispatcher.Dispatch(ctx, e.buildSendRequest(&memberSpec, id), msgType)
				count++
			}
		}
	}

	e.logger.Info("Batch started", "batch_id", batchID, "members", count)
	return batchID, nil
}

// BatchStatus is the non-blocking poll for batch completion. A batch is
// complete when every member is terminal, or when its age exceeds the
// batch-wide timeout; members still non-terminal at that point are relabeled
// timed-out. Completion removes every member record and the batch marker
// exactly once; polling a batch that no longer exists reports an
// already-complete, empty result.
func (e *Engine) BatchStatus(ctx context.Context, batchID string) *report.BatchStatus {
	startedAt, known := e.registry.BatchStartedAt(batchID)
	members := e.registry.MembersOf(batchID)

	if !known && len(members) == 0 {
		return &report.BatchStatus{
			BatchID:  batchID,
			Complete: true,
			Results:  map[string]map[string][]report.MemberResult{},
		}
	}

	complete := true
	for _, rec := range members {
		if !rec.Terminal() {
			complete = false
			break
		}
	}

	expired := known && time.Since(startedAt) > e.config.BatchTimeout
	if !complete && !expired {
		return &report.BatchStatus{
			BatchID:  batchID,
			Complete: false,
			Results:  groupRecords(members),
		}
	}

	// Terminal status is monotonic, so the completion decision made on the
	// snapshot still holds for the removed records.
	removed := e.registry.RemoveWhere(func(rec *registry.TestRecord) bool {
		return rec.Kind == registry.KindBulkMember && rec.BatchID == batchID
	})
	e.registry.RemoveBatch(batchID)

	for _, rec := range removed {
		if rec.MarkTimedOut() {
			e.logger.Warn("Batch member timed out", "batch_id", batchID, "tag", rec.ID)
		}
		e.telemetry.RecordTestResolved(ctx)
	}

	status := &report.BatchStatus{
		BatchID:  batchID,
		Complete: true,
		Results:  groupRecords(removed),
	}
	if len(removed) > 0 {
		if err := e.archive.StoreBatch(ctx, status); err != nil {
			e.logger.Warn("Failed to archive batch status", "batch_id", batchID, "error", err)
		}
		e.logger.Info("Batch complete", "batch_id", batchID, "members", len(removed))
	}
	return status
}

func groupRecords(records []*registry.TestRecord) map[string]map[string][]report.MemberResult {
	members := make([]report.MemberResult, 0, len(records))
	for _, rec := range records {
		m := report.MemberResult{
			TestID:      rec.ID,
			SourceName:  rec.SourceName,
			Source:      rec.Source,
			Destination: rec.Destination,
			Carrier:     rec.Carrier,
			MessageType: rec.MessageType,
			Status:      string(rec.Status),
			ErrorDetail: rec.ErrorDetail,
		}
		if rec.LatencyKnown {
			seconds := rec.Latency.Seconds()
			m.LatencySeconds = &seconds
		}
		members = append(members, m)
	}
	return report.GroupMembers(members)
}
