package http

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/toxic-toad/aquaventure/internal/domain"
)

// OrderHistory lists archived orders placed with an email address.
type OrderHistory interface {
	ListOrdersByEmail(ctx context.Context, email string) ([]domain.Order, error)
}

type OrdersHandler struct {
	history OrderHistory
	timeout time.Duration
}

// NewOrdersHandler accepts a nil history when no archive is configured.
func NewOrdersHandler(history OrderHistory, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		history: history,
		timeout: timeout,
	}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	account, ok := getAccount(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	if h.history == nil {
		respondError(w, r, http.StatusServiceUnavailable, "orders_unavailable", "order history is not available")
		return
	}

	orders, err := h.history.ListOrdersByEmail(ctx, account.Email)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("account_id", account.ID).Msg("failed to list orders")
		respondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	respondJSON(w, r, http.StatusOK, orders)
}
