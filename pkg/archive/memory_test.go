package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/smsprobe/pkg/report"
)

func TestMemoryArchiveStoreAndGet(t *testing.T) {
	m := NewMemoryArchive()
	ctx := context.Background()

	result := &report.TestResult{TestID: "single_1", Outcome: report.OutcomeDelivered}
	require.NoError(t, m.StoreTest(ctx, result))

	got, err := m.GetTest(ctx, "single_1")
	require.NoError(t, err)
	assert.Equal(t, report.OutcomeDelivered, got.Outcome)

	// The archive hands out copies, not the stored value.
	got.Outcome = report.OutcomeFailed
	fresh, err := m.GetTest(ctx, "single_1")
	require.NoError(t, err)
	assert.Equal(t, report.OutcomeDelivered, fresh.Outcome)
}

func TestMemoryArchiveBatch(t *testing.T) {
	m := NewMemoryArchive()
	ctx := context.Background()

	status := &report.BatchStatus{BatchID: "batch_1", Complete: true}
	require.NoError(t, m.StoreBatch(ctx, status))

	got, err := m.GetBatch(ctx, "batch_1")
	require.NoError(t, err)
	assert.True(t, got.Complete)
}

func TestMemoryArchiveNotFound(t *testing.T) {
	m := NewMemoryArchive()
	ctx := context.Background()

	_, err := m.GetTest(ctx, "missing")
	assert.ErrorIs(t, err, ErrResultNotFound)

	_, err = m.GetBatch(ctx, "missing")
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func TestMemoryArchiveClosed(t *testing.T) {
	m := NewMemoryArchive()
	ctx := context.Background()

	require.NoError(t, m.Close())

	err := m.StoreTest(ctx, &report.TestResult{TestID: "single_1"})
	assert.ErrorIs(t, err, ErrArchiveClosed)

	err = m.StoreBatch(ctx, &report.BatchStatus{BatchID: "batch_1"})
	assert.ErrorIs(t, err, ErrArchiveClosed)
}
