package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/toxic-toad/aquaventure/internal/checkout"
	"github.com/toxic-toad/aquaventure/internal/domain"
)

type Checkout interface {
	Submit(ctx context.Context, c checkout.Cart, details domain.CustomerDetails) (domain.Order, error)
}

type CheckoutHandler struct {
	carts    CartSessions
	checkout Checkout
	timeout  time.Duration
}

func NewCheckoutHandler(carts CartSessions, co Checkout, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		carts:    carts,
		checkout: co,
		timeout:  timeout,
	}
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var details domain.CustomerDetails
	if !decodeJSON(w, r, &details) {
		return
	}

	store, ok := loadCart(ctx, h.carts, w, r)
	if !ok {
		return
	}
	order, err := h.checkout.Submit(ctx, store, details)

	var verr *checkout.ValidationError
	switch {
	case err == nil:
		respondJSON(w, r, http.StatusCreated, order)
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, r, http.StatusConflict, "empty_cart", "Your cart is empty.")
	case errors.As(err, &verr):
		respondFields(w, r, http.StatusUnprocessableEntity, "validation_failed", "Please correct the highlighted fields.", verr.Fields)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("checkout failed")
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// GET /api/v1/orders/last
func (h *CheckoutHandler) LastOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := loadCart(ctx, h.carts, w, r)
	if !ok {
		return
	}
	order, ok := store.LastOrder()
	if !ok {
		respondError(w, r, http.StatusNotFound, "no_last_order", "no order has been placed in this session")
		return
	}
	respondJSON(w, r, http.StatusOK, order)
}
