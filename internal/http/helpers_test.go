package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/toxic-toad/aquaventure/internal/cart"
	"github.com/toxic-toad/aquaventure/internal/catalog"
	"github.com/toxic-toad/aquaventure/internal/checkout"
	"github.com/toxic-toad/aquaventure/internal/domain"
	"github.com/toxic-toad/aquaventure/internal/identity"
	"github.com/toxic-toad/aquaventure/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const testSession = "3f1c2a9e-8b7d-4c6e-9a5f-1d2e3f4a5b6c"

type historyMock struct {
	mu     sync.Mutex
	orders []domain.Order
	email  string
	err    error
}

func (h *historyMock) ListOrdersByEmail(_ context.Context, email string) ([]domain.Order, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.email = email
	return h.orders, h.err
}

// flakyKV fails every Get while err is set.
type flakyKV struct {
	storage.KV

	mu  sync.Mutex
	err error
}

func (f *flakyKV) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.KV.Get(ctx, key)
}

// cart returns the test session's Store.
func (e *testEnv) cart(t *testing.T) *cart.Store {
	t.Helper()
	s, err := e.carts.Get(context.Background(), testSession)
	require.NoError(t, err)
	return s
}

type testEnv struct {
	router  http.Handler
	carts   *cart.Sessions
	history *historyMock
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]domain.Product{
		{ID: "1", Name: "AquaClear 20 Power Filter", Price: decimal.RequireFromString("29.99"), Category: "Filters", Stock: 25},
		{ID: "2", Name: "Fluval Heater 100W", Price: decimal.RequireFromString("34.50"), Category: "Heaters", Stock: 2},
		{ID: "3", Name: "Java Fern", Price: decimal.RequireFromString("8.99"), Category: "Plants", Stock: 10},
		{ID: "4", Name: "Amazon Sword", Price: decimal.RequireFromString("6.49"), Category: "Plants", Stock: 0},
	})
	require.NoError(t, err)
	return c
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()

	carts := cart.NewSessions(storage.NewMemoryKV(), cart.SessionsConfig{}, zerolog.Nop())
	t.Cleanup(carts.Close)

	history := &historyMock{}
	d := Deps{
		Catalog:  testCatalog(t),
		Carts:    carts,
		Checkout: checkout.NewOrchestrator(zerolog.Nop()),
		Accounts: identity.NewService(
			identity.NewMemoryRepository(),
			storage.NewMemoryKV(),
			identity.Config{BcryptCost: bcrypt.MinCost},
			zerolog.Nop(),
		),
		Orders: history,
		Log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(&d)
	}

	return &testEnv{router: NewRouter(d), carts: carts, history: history}
}

// do sends a request in the test cart session.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(CartSessionHeader, testSession)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func validDetails() domain.CustomerDetails {
	return domain.CustomerDetails{
		Name:       "Nemo Clownfish",
		Email:      "nemo@reef.example",
		Address:    "42 Wallaby Way",
		City:       "Sydney",
		PostalCode: "2000",
		Country:    "Australia",
	}
}
