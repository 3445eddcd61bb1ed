// Package checkout turns a cart and validated shipping details into an
// Order.
package checkout

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/toxic-toad/aquaventure/internal/cart"
	"github.com/toxic-toad/aquaventure/internal/domain"
)

// Cart is the part of cart.Store checkout needs.
type Cart interface {
	Snapshot() cart.State
	Batch(ctx context.Context, fn func(cart.State) ([]cart.Action, error)) (cart.State, error)
}

// OrderSink is told about every placed order. Sink failures never undo
// or fail a checkout.
type OrderSink interface {
	Record(ctx context.Context, order domain.Order) error
}

type Orchestrator struct {
	validate *validator.Validate
	ids      *IDGenerator
	now      func() time.Time
	sinks    []OrderSink
	log      zerolog.Logger
}

func NewOrchestrator(log zerolog.Logger, sinks ...OrderSink) *Orchestrator {
	return &Orchestrator{
		validate: domain.NewValidator(),
		ids:      &IDGenerator{},
		now:      time.Now,
		sinks:    sinks,
		log:      log,
	}
}

// Submit places an order for the cart's current contents. On success the
// order becomes the cart's last order and the cart is emptied, as one
// step with respect to other operations on the cart.
//
// An empty cart yields ErrEmptyCart and invalid details a
// *ValidationError; in both cases the cart is left untouched.
func (o *Orchestrator) Submit(ctx context.Context, c Cart, details domain.CustomerDetails) (domain.Order, error) {
	if c.Snapshot().IsEmpty() {
		return domain.Order{}, ErrEmptyCart
	}

	details = NormalizeDetails(details)
	if err := ValidateDetails(o.validate, details); err != nil {
		return domain.Order{}, err
	}

	var order domain.Order
	_, err := c.Batch(ctx, func(st cart.State) ([]cart.Action, error) {
		if st.IsEmpty() {
			return nil, ErrEmptyCart
		}
		now := o.now().UTC().Truncate(time.Millisecond)
		order = domain.Order{
			ID:          o.ids.Next(now),
			Items:       st.Items,
			TotalAmount: st.TotalPrice(),
			Customer:    details,
			CreatedAt:   now,
		}
		return []cart.Action{cart.SetLastOrder{Order: order}, cart.ClearCart{}}, nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	o.log.Info().
		Str("order_id", order.ID).
		Str("total", order.TotalAmount.StringFixed(2)).
		Int("items", order.ItemCount()).
		Msg("order placed")

	o.record(ctx, order)
	return order, nil
}

func (o *Orchestrator) record(ctx context.Context, order domain.Order) {
	for _, sink := range o.sinks {
		if err := sink.Record(ctx, order); err != nil {
			o.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to record order")
		}
	}
}
