package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shopspring/decimal"
	"github.com/toxic-toad/aquaventure/internal/domain"
	"github.com/toxic-toad/aquaventure/internal/storage"
)

func testProduct(id string, price float64, stock int) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    decimal.NewFromFloat(price),
		Category: "Fish",
		Stock:    stock,
	}
}

// mockKV wraps a MemoryKV, counts calls and can be told to fail.
type mockKV struct {
	m      sync.RWMutex
	inner  *storage.MemoryKV
	gets   int
	sets   int
	dels   int
	getErr error
	setErr error
}

func mustOpen(t *testing.T, ctx context.Context, kv storage.KV, log zerolog.Logger) *Store {
	t.Helper()
	s, err := Open(ctx, kv, testKey, log)
	require.NoError(t, err)
	return s
}

func mustGet(t *testing.T, ctx context.Context, s *Sessions, sessionID string) *Store {
	t.Helper()
	st, err := s.Get(ctx, sessionID)
	require.NoError(t, err)
	return st
}

func newMockKV() *mockKV {
	return &mockKV{inner: storage.NewMemoryKV()}
}

func (k *mockKV) Get(ctx context.Context, key string) ([]byte, error) {
	k.m.Lock()
	k.gets++
	err := k.getErr
	k.m.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return k.inner.Get(ctx, key)
}

func (k *mockKV) Set(ctx context.Context, key string, value []byte) error {
	k.m.Lock()
	k.sets++
	err := k.setErr
	k.m.Unlock()
	if err != nil {
		return err
	}
	return k.inner.Set(ctx, key, value)
}

func (k *mockKV) Delete(ctx context.Context, key string) error {
	k.m.Lock()
	k.dels++
	k.m.Unlock()
	return k.inner.Delete(ctx, key)
}

func (k *mockKV) counts() (gets, sets, dels int) {
	k.m.RLock()
	defer k.m.RUnlock()
	return k.gets, k.sets, k.dels
}
