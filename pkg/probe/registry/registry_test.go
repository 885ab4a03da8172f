package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/smsprobe/pkg/errors"
	"github.com/kart-io/smsprobe/pkg/provider"
)

func TestCreateRejectsDuplicateTag(t *testing.T) {
	reg := New(nil)

	require.NoError(t, reg.Create(NewSingleRecord("single_1", provider.TypeSMS)))

	err := reg.Create(NewSingleRecord("single_1", provider.TypeSMS))
	require.Error(t, err)
	assert.Equal(t, errors.ErrDuplicateTest, errors.CodeOf(err))
	assert.Equal(t, 1, reg.Len())
}

func TestGetReturnsClone(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Create(NewSingleRecord("single_1", provider.TypeSMS)))

	got, ok := reg.Get("single_1")
	require.True(t, ok)
	got.MarkFailed("mutated outside the lock")

	fresh, ok := reg.Get("single_1")
	require.True(t, ok)
	assert.Equal(t, StatusPending, fresh.Status)
}

func TestGetUnknown(t *testing.T) {
	reg := New(nil)
	_, ok := reg.Get("missing")
	assert.False(t, ok)
}

func TestMutateAppliesUnderLock(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Create(NewSingleRecord("single_1", provider.TypeSMS)))

	ok := reg.Mutate("single_1", func(rec *TestRecord) {
		rec.MarkSent("msg-1", time.Now())
	})
	require.True(t, ok)

	got, _ := reg.Get("single_1")
	assert.Equal(t, StatusSent, got.Status)
}

func TestMutateMissingRecord(t *testing.T) {
	reg := New(nil)
	called := false
	ok := reg.Mutate("missing", func(*TestRecord) { called = true })
	assert.False(t, ok)
	assert.False(t, called)
}

func TestRemove(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Create(NewSingleRecord("single_1", provider.TypeSMS)))

	removed := reg.Remove("single_1")
	require.NotNil(t, removed)
	assert.Equal(t, "single_1", removed.ID)
	assert.Nil(t, reg.Remove("single_1"))
	assert.Equal(t, 0, reg.Len())
}

func TestRemoveWhereAndMembersOf(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Create(NewBulkRecord("bulk_1", "batch_a", provider.TypeSMS)))
	require.NoError(t, reg.Create(NewBulkRecord("bulk_2", "batch_a", provider.TypeMMS)))
	require.NoError(t, reg.Create(NewBulkRecord("bulk_3", "batch_b", provider.TypeSMS)))
	require.NoError(t, reg.Create(NewSingleRecord("single_1", provider.TypeSMS)))

	assert.Len(t, reg.MembersOf("batch_a"), 2)
	assert.Len(t, reg.MembersOf("batch_b"), 1)

	removed := reg.RemoveWhere(func(rec *TestRecord) bool {
		return rec.Kind == KindBulkMember && rec.BatchID == "batch_a"
	})
	assert.Len(t, removed, 2)
	assert.Equal(t, 2, reg.Len())
	assert.Empty(t, reg.MembersOf("batch_a"))
}

func TestBatchBookkeeping(t *testing.T) {
	reg := New(nil)
	startedAt := time.Now()

	reg.CreateBatch("batch_a", startedAt)
	got, ok := reg.BatchStartedAt("batch_a")
	require.True(t, ok)
	assert.Equal(t, startedAt, got)

	reg.RemoveBatch("batch_a")
	_, ok = reg.BatchStartedAt("batch_a")
	assert.False(t, ok)
}

func TestConcurrentMutations(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.Create(NewSingleRecord("single_1", provider.TypeSMS)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Mutate("single_1", func(rec *TestRecord) {
				rec.MarkDelivered(time.Now())
			})
		}()
		go func() {
			defer wg.Done()
			reg.Mutate("single_1", func(rec *TestRecord) {
				rec.MarkFailed("race")
			})
		}()
	}
	wg.Wait()

	got, ok := reg.Get("single_1")
	require.True(t, ok)
	assert.True(t, got.Terminal())
	if got.Status == StatusDelivered {
		assert.Empty(t, got.ErrorDetail)
	}
}
