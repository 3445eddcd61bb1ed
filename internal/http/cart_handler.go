package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/toxic-toad/aquaventure/internal/cart"
	"github.com/toxic-toad/aquaventure/internal/catalog"
	"github.com/toxic-toad/aquaventure/internal/domain"
)

// maxQuantity caps a single cart line.
const maxQuantity = 99

var errInsufficientStock = errors.New("insufficient stock")

// CartSessions hands out the Store behind a cart session id.
type CartSessions interface {
	Get(ctx context.Context, sessionID string) (*cart.Store, error)
}

type CartHandler struct {
	carts   CartSessions
	catalog *catalog.Catalog
	timeout time.Duration
}

func NewCartHandler(carts CartSessions, c *catalog.Catalog, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: c,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type ReplaceCartRequestDTO struct {
	Items []AddItemRequestDTO `json:"items"`
}

type CartResponseDTO struct {
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice decimal.Decimal   `json:"total_price"`
}

func newCartResponse(s cart.State) CartResponseDTO {
	items := s.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return CartResponseDTO{
		Items:      items,
		TotalItems: s.TotalItemCount(),
		TotalPrice: s.TotalPrice(),
	}
}

// store loads the caller's cart, answering 503 itself when the stored
// cart cannot be read.
func (h *CartHandler) store(ctx context.Context, w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	return loadCart(ctx, h.carts, w, r)
}

func loadCart(ctx context.Context, carts CartSessions, w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	store, err := carts.Get(ctx, getCartSession(r.Context()))
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to load cart")
		respondError(w, r, http.StatusServiceUnavailable, "cart_unavailable", "your cart is temporarily unavailable, please retry")
		return nil, false
	}
	return store, true
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(ctx, w, r)
	if !ok {
		return
	}
	respondJSON(w, r, http.StatusOK, newCartResponse(store.Snapshot()))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity < 1 || req.Quantity > maxQuantity {
		respondError(w, r, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	product, ok := h.catalog.FindByID(strings.TrimSpace(req.ProductID))
	if !ok {
		respondError(w, r, http.StatusNotFound, "product_not_found", "product not found")
		return
	}

	store, ok := h.store(ctx, w, r)
	if !ok {
		return
	}
	state, err := store.Batch(ctx, func(s cart.State) ([]cart.Action, error) {
		if req.Quantity > product.Stock-s.Quantity(product.ID) {
			return nil, errInsufficientStock
		}
		return []cart.Action{cart.AddItem{Product: product, Quantity: req.Quantity}}, nil
	})
	if errors.Is(err, errInsufficientStock) {
		respondInsufficientStock(w, r, product)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, r, http.StatusCreated, newCartResponse(state))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")

	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Quantity > maxQuantity {
		respondError(w, r, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}
	if product, ok := h.catalog.FindByID(productID); ok && req.Quantity > product.Stock {
		respondInsufficientStock(w, r, product)
		return
	}

	store, ok := h.store(ctx, w, r)
	if !ok {
		return
	}
	state := store.UpdateQuantity(ctx, productID, req.Quantity)
	respondJSON(w, r, http.StatusOK, newCartResponse(state))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(ctx, w, r)
	if !ok {
		return
	}
	state := store.Remove(ctx, chi.URLParam(r, "product_id"))
	respondJSON(w, r, http.StatusOK, newCartResponse(state))
}

// PUT /api/v1/cart replaces the whole cart, e.g. when restoring a cart
// saved on another device. Unknown products and non-positive quantities
// are dropped; quantities are capped at 99 and at the available stock.
func (h *CartHandler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ReplaceCartRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]domain.CartItem, 0, len(req.Items))
	index := make(map[string]int, len(req.Items))
	for _, it := range req.Items {
		product, ok := h.catalog.FindByID(strings.TrimSpace(it.ProductID))
		if !ok || it.Quantity < 1 {
			continue
		}
		q := min(it.Quantity, maxQuantity)
		if i, seen := index[product.ID]; seen {
			items[i].Quantity = min(items[i].Quantity+q, maxQuantity)
			continue
		}
		index[product.ID] = len(items)
		items = append(items, domain.CartItem{Product: product, Quantity: q})
	}
	for i := range items {
		items[i].Quantity = min(items[i].Quantity, items[i].Stock)
	}

	store, ok := h.store(ctx, w, r)
	if !ok {
		return
	}
	state := store.Load(ctx, items)
	respondJSON(w, r, http.StatusOK, newCartResponse(state))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(ctx, w, r)
	if !ok {
		return
	}
	state := store.Clear(ctx)
	respondJSON(w, r, http.StatusOK, newCartResponse(state))
}

func respondInsufficientStock(w http.ResponseWriter, r *http.Request, p domain.Product) {
	respondJSON(w, r, http.StatusConflict, ErrorResponse{
		Error:   "not enough stock for " + p.Name,
		Code:    "insufficient_stock",
		Details: "available: " + strconv.Itoa(p.Stock),
	})
}
