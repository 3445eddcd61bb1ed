package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toxic-toad/aquaventure/internal/domain"
	"github.com/toxic-toad/aquaventure/internal/storage"
)

const testKey = "aquaVentureCart:test"

func TestStore_PersistReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	s := mustOpen(t, ctx, kv, zerolog.Nop())
	s.Add(ctx, testProduct("B", 5, 10), 1)
	s.Add(ctx, testProduct("A", 10, 10), 2)
	s.Add(ctx, testProduct("C", 2.5, 10), 4)
	s.UpdateQuantity(ctx, "C", 3)

	reopened := mustOpen(t, ctx, kv, zerolog.Nop())

	want, got := s.Items(), reopened.Items()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.True(t, want[i].Price.Equal(got[i].Price))
	}
	assert.Equal(t, 6, reopened.TotalItemCount())
	assert.True(t, decimal.NewFromFloat(32.5).Equal(reopened.TotalPrice()))
}

func TestStore_PersistsFlatItemArray(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	s := mustOpen(t, ctx, kv, zerolog.Nop())
	s.Add(ctx, testProduct("A", 10, 3), 2)

	data, err := kv.Get(ctx, testKey)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "A", raw[0]["id"])
	assert.Equal(t, "Product A", raw[0]["name"])
	assert.EqualValues(t, 2, raw[0]["quantity"])
	assert.EqualValues(t, 3, raw[0]["stock"])
}

func TestStore_LastOrderIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	s := mustOpen(t, ctx, kv, zerolog.Nop())
	s.Add(ctx, testProduct("A", 1, 1), 1)
	s.SetLastOrder(ctx, domain.Order{ID: "1"})

	_, ok := s.LastOrder()
	assert.True(t, ok)

	reopened := mustOpen(t, ctx, kv, zerolog.Nop())
	_, ok = reopened.LastOrder()
	assert.False(t, ok)
	assert.Len(t, reopened.Items(), 1)
}

func TestStore_MalformedSlotStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, testKey, []byte(`{not json`)))

	var buf bytes.Buffer
	s := mustOpen(t, ctx, kv, zerolog.New(&buf))

	assert.Empty(t, s.Items())
	assert.Contains(t, buf.String(), "malformed")

	// the next mutation overwrites the bad slot
	s.Add(ctx, testProduct("A", 1, 1), 1)
	reopened := mustOpen(t, ctx, kv, zerolog.Nop())
	assert.Len(t, reopened.Items(), 1)
}

func TestStore_UnreadableSlotIsNotOpened(t *testing.T) {
	kv := newMockKV()
	kv.getErr = errors.New("connection refused")

	s, err := Open(context.Background(), kv, testKey, zerolog.Nop())

	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorContains(t, err, "connection refused")
}

func TestStore_FailedReadKeepsStoredCart(t *testing.T) {
	ctx := context.Background()
	kv := newMockKV()

	s := mustOpen(t, ctx, kv, zerolog.Nop())
	s.Add(ctx, testProduct("A", 1, 5), 2)
	s.Add(ctx, testProduct("B", 1, 5), 1)

	kv.m.Lock()
	kv.getErr = errors.New("i/o timeout")
	kv.m.Unlock()
	_, err := Open(ctx, kv, testKey, zerolog.Nop())
	require.ErrorIs(t, err, ErrUnavailable)

	kv.m.Lock()
	kv.getErr = nil
	kv.m.Unlock()
	reopened := mustOpen(t, ctx, kv, zerolog.Nop())
	reopened.Add(ctx, testProduct("C", 1, 5), 1)

	final := mustOpen(t, ctx, kv, zerolog.Nop())
	require.Len(t, final.Items(), 3)
	assert.Equal(t, 2, final.Quantity("A"))
	assert.Equal(t, 1, final.Quantity("B"))
	assert.Equal(t, 1, final.Quantity("C"))
}

func TestStore_HydrationDoesNotWriteBack(t *testing.T) {
	ctx := context.Background()
	kv := newMockKV()
	require.NoError(t, kv.inner.Set(ctx, testKey, []byte(`[{"id":"A","price":"1","quantity":2}]`)))

	s := mustOpen(t, ctx, kv, zerolog.Nop())

	assert.Equal(t, 2, s.TotalItemCount())
	_, sets, dels := kv.counts()
	assert.Zero(t, sets)
	assert.Zero(t, dels)
}

func TestStore_NoOpsDoNotWrite(t *testing.T) {
	ctx := context.Background()
	kv := newMockKV()

	s := mustOpen(t, ctx, kv, zerolog.Nop())
	s.Add(ctx, testProduct("A", 1, 1), 1)

	s.Remove(ctx, "missing")
	s.UpdateQuantity(ctx, "missing", 3)
	s.UpdateQuantity(ctx, "A", 1)
	s.Add(ctx, testProduct("A", 1, 1), 0)
	s.SetLastOrder(ctx, domain.Order{ID: "x"})

	_, sets, _ := kv.counts()
	assert.Equal(t, 1, sets)
}

func TestStore_ClearRemovesSlot(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	s := mustOpen(t, ctx, kv, zerolog.Nop())
	s.Add(ctx, testProduct("A", 1, 1), 1)
	s.Clear(ctx)

	_, err := kv.Get(ctx, testKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, s.Items())
}

func TestStore_PersistFailureIsLoggedNotReturned(t *testing.T) {
	ctx := context.Background()
	kv := newMockKV()
	kv.setErr = errors.New("disk full")

	var buf bytes.Buffer
	s := mustOpen(t, ctx, kv, zerolog.New(&buf))

	state := s.Add(ctx, testProduct("A", 1, 1), 2)

	assert.Equal(t, 2, state.TotalItemCount())
	assert.Equal(t, 2, s.TotalItemCount())
	assert.Contains(t, buf.String(), "failed to persist cart")
	assert.Contains(t, buf.String(), "disk full")
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := mustOpen(t, ctx, storage.NewMemoryKV(), zerolog.Nop())
	s.Add(ctx, testProduct("A", 1, 1), 1)

	snap := s.Snapshot()
	snap.Items[0].Quantity = 100

	assert.Equal(t, 1, s.Quantity("A"))
	assert.Equal(t, 0, s.Quantity("missing"))
}

func TestStore_BatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	kv := newMockKV()
	s := mustOpen(t, ctx, kv, zerolog.Nop())
	s.Add(ctx, testProduct("A", 4, 9), 2)

	state, err := s.Batch(ctx, func(st State) ([]Action, error) {
		order := domain.Order{ID: "1", Items: st.Items, TotalAmount: st.TotalPrice()}
		return []Action{SetLastOrder{Order: order}, ClearCart{}}, nil
	})
	require.NoError(t, err)

	assert.Empty(t, state.Items)
	require.NotNil(t, state.LastOrder)
	assert.True(t, decimal.NewFromInt(8).Equal(state.LastOrder.TotalAmount))
	assert.Len(t, state.LastOrder.Items, 1)
}

func TestStore_BatchErrorAppliesNothing(t *testing.T) {
	ctx := context.Background()
	kv := newMockKV()
	s := mustOpen(t, ctx, kv, zerolog.Nop())
	s.Add(ctx, testProduct("A", 4, 9), 2)

	boom := errors.New("boom")
	_, err := s.Batch(ctx, func(State) ([]Action, error) {
		return []Action{ClearCart{}}, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, s.TotalItemCount())
	_, _, dels := kv.counts()
	assert.Zero(t, dels)
}

func TestStore_ConcurrentAddsAreSerialized(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := mustOpen(t, ctx, kv, zerolog.Nop())
	p := testProduct("A", 1, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(ctx, p, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, s.TotalItemCount())
	reopened := mustOpen(t, ctx, kv, zerolog.Nop())
	assert.Equal(t, 100, reopened.TotalItemCount())
}
