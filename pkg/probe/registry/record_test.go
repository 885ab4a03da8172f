package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/smsprobe/pkg/provider"
)

func TestMarkSentOnlyFromPending(t *testing.T) {
	rec := NewSingleRecord("single_1", provider.TypeSMS)

	assert.True(t, rec.MarkSent("msg-1", time.Now()))
	assert.Equal(t, StatusSent, rec.Status)
	assert.Equal(t, "msg-1", rec.ProviderMessageID)

	// A second acknowledgment must not overwrite the first.
	assert.False(t, rec.MarkSent("msg-2", time.Now()))
	assert.Equal(t, "msg-1", rec.ProviderMessageID)
}

func TestMarkSentDoesNotRegressTerminal(t *testing.T) {
	rec := NewSingleRecord("single_2", provider.TypeSMS)

	// Delivery webhook beats the send acknowledgment.
	require.True(t, rec.MarkDelivered(time.Now()))
	assert.False(t, rec.MarkSent("msg-1", time.Now()))
	assert.Equal(t, StatusDelivered, rec.Status)
}

func TestFirstTerminalEventWins(t *testing.T) {
	rec := NewSingleRecord("single_3", provider.TypeSMS)
	rec.MarkSent("msg-1", time.Now())

	require.True(t, rec.MarkDelivered(time.Now()))
	assert.False(t, rec.MarkFailed("late failure"))
	assert.False(t, rec.MarkTimedOut())
	assert.False(t, rec.MarkDelivered(time.Now()))

	assert.Equal(t, StatusDelivered, rec.Status)
	assert.Empty(t, rec.ErrorDetail)
}

func TestLatencyFromSentBaseline(t *testing.T) {
	rec := NewSingleRecord("single_4", provider.TypeSMS)
	sentAt := time.Now()
	rec.MarkSent("msg-1", sentAt)

	rec.MarkDelivered(sentAt.Add(3 * time.Second))

	assert.True(t, rec.LatencyKnown)
	assert.Equal(t, 3*time.Second, rec.Latency)
}

func TestLatencyFallsBackToCarrierAccepted(t *testing.T) {
	rec := NewSingleRecord("single_5", provider.TypeSMS)
	acceptedAt := time.Now()

	// Webhooks outran the send acknowledgment, so SentAt is never set.
	require.True(t, rec.MarkCarrierAccepted(acceptedAt))
	rec.MarkDelivered(acceptedAt.Add(2 * time.Second))

	assert.True(t, rec.LatencyKnown)
	assert.Equal(t, 2*time.Second, rec.Latency)
}

func TestLatencyUnknownWithoutBaseline(t *testing.T) {
	rec := NewSingleRecord("single_6", provider.TypeSMS)

	rec.MarkDelivered(time.Now())

	assert.False(t, rec.LatencyKnown)
	assert.Zero(t, rec.Latency)
}

func TestCarrierAcceptedRecordedOnce(t *testing.T) {
	rec := NewSingleRecord("single_7", provider.TypeSMS)
	first := time.Now()

	assert.True(t, rec.MarkCarrierAccepted(first))
	assert.False(t, rec.MarkCarrierAccepted(first.Add(time.Second)))
	assert.Equal(t, first, rec.CarrierAcceptedAt)

	rec.MarkDelivered(first.Add(2 * time.Second))
	assert.False(t, rec.MarkCarrierAccepted(first.Add(3*time.Second)))
}

func TestSignalFiresOnce(t *testing.T) {
	rec := NewSingleRecord("single_8", provider.TypeSMS)

	rec.Signal()
	rec.Signal() // must not panic on double close

	select {
	case <-rec.Done():
	default:
		t.Fatal("expected Done channel to be closed")
	}
}

func TestBulkRecordHasNoSignal(t *testing.T) {
	rec := NewBulkRecord("bulk_1", "batch_1", provider.TypeMMS)

	rec.Signal() // no-op, must not panic

	assert.Nil(t, rec.Done())
	assert.Equal(t, KindBulkMember, rec.Kind)
	assert.Equal(t, "batch_1", rec.BatchID)
}

func TestCloneIsIndependent(t *testing.T) {
	rec := NewSingleRecord("single_9", provider.TypeSMS)
	rec.MarkSent("msg-1", time.Now())

	clone := rec.Clone()
	clone.MarkFailed("mutated copy")

	assert.Equal(t, StatusSent, rec.Status)
	assert.Equal(t, StatusFailed, clone.Status)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusSent.Terminal())
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusTimedOut.Terminal())
}
