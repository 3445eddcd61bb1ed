package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/toxic-toad/aquaventure/internal/domain"
	"github.com/toxic-toad/aquaventure/internal/storage"
)

// Store owns one cart. Operations are serialized and each one runs to
// completion, including its storage write, before the next starts.
//
// Mutations never fail: unknown product ids are no-ops and storage
// errors are logged. The last order lives only in memory.
type Store struct {
	mu    sync.Mutex
	state State
	kv    storage.KV
	key   string
	log   zerolog.Logger
}

// ErrUnavailable means the stored cart could not be read. The cart is
// neither loaded nor written until a later read succeeds.
var ErrUnavailable = errors.New("stored cart unavailable")

// Open creates a Store and hydrates it from the slot under key. A missing
// or malformed slot yields an empty cart; any other read failure is
// returned wrapped in ErrUnavailable and no Store is created.
func Open(ctx context.Context, kv storage.KV, key string, log zerolog.Logger) (*Store, error) {
	s := &Store{
		kv:  kv,
		key: key,
		log: log.With().Str("cart_key", key).Logger(),
	}
	items, err := s.readSlot(ctx)
	if err != nil {
		return nil, err
	}
	if items != nil {
		s.state, _ = reduce(s.state, LoadCart{Items: items})
	}
	return s, nil
}

func (s *Store) readSlot(ctx context.Context) ([]domain.CartItem, error) {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn().Err(err).Msg("stored cart is malformed, starting empty")
		return nil, nil
	}
	return items, nil
}

// Dispatch applies a and returns the resulting state.
func (s *Store) Dispatch(ctx context.Context, a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(ctx, a)
	return s.state.clone()
}

// Batch runs fn against the current state and applies the actions it
// returns as one unit: no other operation on the store interleaves. If fn
// returns an error nothing is applied.
func (s *Store) Batch(ctx context.Context, fn func(State) ([]Action, error)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := fn(s.state.clone())
	if err != nil {
		return s.state.clone(), err
	}
	s.apply(ctx, actions...)
	return s.state.clone(), nil
}

func (s *Store) apply(ctx context.Context, actions ...Action) {
	changed := false
	for _, a := range actions {
		var c bool
		s.state, c = reduce(s.state, a)
		changed = changed || c
		s.log.Debug().Stringer("action", a.Kind()).Msg("cart action applied")
	}
	if changed {
		s.persist(ctx)
	}
}

// persist mirrors the item list to the slot. An empty list removes the
// slot.
func (s *Store) persist(ctx context.Context) {
	if len(s.state.Items) == 0 {
		if err := s.kv.Delete(ctx, s.key); err != nil {
			s.log.Error().Err(err).Msg("failed to delete stored cart")
		}
		return
	}

	data, err := json.Marshal(s.state.Items)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal cart")
		return
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		s.log.Error().Err(err).Msg("failed to persist cart")
	}
}

func (s *Store) Add(ctx context.Context, product domain.Product, quantity int) State {
	return s.Dispatch(ctx, AddItem{Product: product, Quantity: quantity})
}

func (s *Store) Remove(ctx context.Context, productID string) State {
	return s.Dispatch(ctx, RemoveItem{ProductID: productID})
}

func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) State {
	return s.Dispatch(ctx, UpdateQuantity{ProductID: productID, Quantity: quantity})
}

func (s *Store) Clear(ctx context.Context) State {
	return s.Dispatch(ctx, ClearCart{})
}

func (s *Store) SetLastOrder(ctx context.Context, order domain.Order) State {
	return s.Dispatch(ctx, SetLastOrder{Order: order})
}

func (s *Store) Load(ctx context.Context, items []domain.CartItem) State {
	return s.Dispatch(ctx, LoadCart{Items: items})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) Items() []domain.CartItem {
	return s.Snapshot().Items
}

func (s *Store) LastOrder() (domain.Order, bool) {
	st := s.Snapshot()
	if st.LastOrder == nil {
		return domain.Order{}, false
	}
	return *st.LastOrder, true
}

func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalItemCount()
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalPrice()
}

// Quantity returns the quantity held for productID, zero if absent.
func (s *Store) Quantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Quantity(productID)
}
