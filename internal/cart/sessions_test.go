package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T, kv *mockKV) *Sessions {
	s := NewSessions(kv, SessionsConfig{IdleTTL: time.Minute, CleanupInterval: time.Hour}, zerolog.Nop())
	t.Cleanup(s.Close)
	return s
}

func TestSessions_SameStorePerSession(t *testing.T) {
	s := newTestSessions(t, newMockKV())
	ctx := context.Background()

	a1 := mustGet(t, ctx, s, "a")
	a2 := mustGet(t, ctx, s, "a")
	b := mustGet(t, ctx, s, "b")

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, s.Len())
}

func TestSessions_IsolatedCarts(t *testing.T) {
	kv := newMockKV()
	s := newTestSessions(t, kv)
	ctx := context.Background()

	mustGet(t, ctx, s, "a").Add(ctx, testProduct("A", 1, 5), 1)

	assert.Equal(t, 1, mustGet(t, ctx, s, "a").TotalItemCount())
	assert.Zero(t, mustGet(t, ctx, s, "b").TotalItemCount())

	_, err := kv.Get(ctx, "aquaVentureCart:a")
	require.NoError(t, err)
}

func TestSessions_HydratesOnceUnderConcurrency(t *testing.T) {
	kv := newMockKV()
	s := newTestSessions(t, kv)
	ctx := context.Background()

	var wg sync.WaitGroup
	stores := make([]*Store, 20)
	errs := make([]error, len(stores))
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stores[i], errs[i] = s.Get(ctx, "shared")
		}(i)
	}
	wg.Wait()

	for i, st := range stores {
		require.NoError(t, errs[i])
		assert.Same(t, stores[0], st)
	}
	gets, _, _ := kv.counts()
	assert.Equal(t, 1, gets)
}

func TestSessions_EvictIdleKeepsStoredItems(t *testing.T) {
	kv := newMockKV()
	s := newTestSessions(t, kv)
	ctx := context.Background()

	now := time.Now()
	s.mu.Lock()
	s.now = func() time.Time { return now }
	s.mu.Unlock()

	first := mustGet(t, ctx, s, "a")
	first.Add(ctx, testProduct("A", 1, 5), 3)
	mustGet(t, ctx, s, "b")

	s.mu.Lock()
	s.now = func() time.Time { return now.Add(2 * time.Minute) }
	s.mu.Unlock()
	mustGet(t, ctx, s, "b")

	s.evictIdle()

	assert.Equal(t, 1, s.Len())
	second := mustGet(t, ctx, s, "a")
	assert.NotSame(t, first, second)
	assert.Equal(t, 3, second.TotalItemCount())
}

func TestSessions_FailedHydrationIsRetried(t *testing.T) {
	kv := newMockKV()
	s := newTestSessions(t, kv)
	ctx := context.Background()
	require.NoError(t, kv.inner.Set(ctx, s.Key("a"), []byte(`[{"id":"A","price":"1","quantity":2}]`)))

	kv.m.Lock()
	kv.getErr = errors.New("i/o timeout")
	kv.m.Unlock()

	st, err := s.Get(ctx, "a")
	assert.Nil(t, st)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Zero(t, s.Len())

	kv.m.Lock()
	kv.getErr = nil
	kv.m.Unlock()

	st = mustGet(t, ctx, s, "a")
	assert.Equal(t, 2, st.TotalItemCount())
	st.Add(ctx, testProduct("B", 1, 5), 1)

	data, err := kv.inner.Get(ctx, s.Key("a"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"A"`)
	assert.Contains(t, string(data), `"id":"B"`)
}

func TestSessions_HydrationOutlivesCallerCancellation(t *testing.T) {
	kv := newMockKV()
	s := newTestSessions(t, kv)
	require.NoError(t, kv.inner.Set(context.Background(), s.Key("a"), []byte(`[{"id":"A","price":"1","quantity":2}]`)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalItemCount())
}

func TestSessions_CloseIsIdempotent(t *testing.T) {
	s := NewSessions(newMockKV(), SessionsConfig{CleanupInterval: 10 * time.Millisecond}, zerolog.Nop())

	s.Close()
	s.Close()
}

func TestSessions_Defaults(t *testing.T) {
	s := NewSessions(newMockKV(), SessionsConfig{}, zerolog.Nop())
	defer s.Close()

	assert.Equal(t, "aquaVentureCart:x", s.Key("x"))
	assert.Equal(t, DefaultIdleTTL, s.cfg.IdleTTL)
	assert.Equal(t, DefaultCleanupInterval, s.cfg.CleanupInterval)
}
