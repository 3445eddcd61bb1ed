// Package cart implements the shopping cart: a reducer over a closed set
// of actions, a per-session Store that mirrors its items to a key-value
// slot, and the Sessions registry that owns the stores.
package cart

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/toxic-toad/aquaventure/internal/domain"
)

// State is the cart aggregate. Items keep insertion order and hold at
// most one line per product id, each with a positive quantity.
type State struct {
	Items     []domain.CartItem `json:"items"`
	LastOrder *domain.Order     `json:"last_order,omitempty"`
}

func (s State) TotalItemCount() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

func (s State) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Quantity returns the quantity held for productID, zero if absent.
func (s State) Quantity(productID string) int {
	if i := s.indexOf(productID); i >= 0 {
		return s.Items[i].Quantity
	}
	return 0
}

func (s State) indexOf(productID string) int {
	for i, it := range s.Items {
		if it.ID == productID {
			return i
		}
	}
	return -1
}

// Reduce returns the state that results from applying a to s. s is not
// modified.
func Reduce(s State, a Action) State {
	next, _ := reduce(s, a)
	return next
}

// reduce also reports whether the item list changed.
func reduce(s State, a Action) (State, bool) {
	switch act := a.(type) {
	case AddItem:
		if act.Quantity <= 0 {
			return s, false
		}
		items := copyItems(s.Items)
		if i := s.indexOf(act.Product.ID); i >= 0 {
			q, ok := addQuantity(items[i].Quantity, act.Quantity)
			if !ok {
				return s, false
			}
			items[i].Quantity = q
		} else {
			items = append(items, domain.CartItem{Product: act.Product, Quantity: act.Quantity})
		}
		s.Items = items
		return s, true

	case RemoveItem:
		i := s.indexOf(act.ProductID)
		if i < 0 {
			return s, false
		}
		s.Items = removeAt(s.Items, i)
		return s, true

	case UpdateQuantity:
		i := s.indexOf(act.ProductID)
		if i < 0 {
			return s, false
		}
		q := max(0, act.Quantity)
		if q == 0 {
			s.Items = removeAt(s.Items, i)
			return s, true
		}
		if s.Items[i].Quantity == q {
			return s, false
		}
		items := copyItems(s.Items)
		items[i].Quantity = q
		s.Items = items
		return s, true

	case ClearCart:
		if len(s.Items) == 0 {
			return s, false
		}
		s.Items = nil
		return s, true

	case SetLastOrder:
		order := act.Order
		order.Items = copyItems(order.Items)
		s.LastOrder = &order
		return s, false

	case LoadCart:
		s.Items = sanitize(act.Items)
		return s, true

	default:
		panic(fmt.Sprintf("cart: unhandled action %T", a))
	}
}

// sanitize drops non-positive quantities and merges repeated product ids
// into the first occurrence.
func sanitize(in []domain.CartItem) []domain.CartItem {
	var out []domain.CartItem
	pos := make(map[string]int, len(in))
	for _, it := range in {
		if it.Quantity <= 0 {
			continue
		}
		if i, ok := pos[it.ID]; ok {
			q, fits := addQuantity(out[i].Quantity, it.Quantity)
			if !fits {
				q = math.MaxInt
			}
			out[i].Quantity = q
			continue
		}
		pos[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}

// addQuantity adds two positive quantities, reporting false when the sum
// does not fit in an int.
func addQuantity(a, b int) (int, bool) {
	if a > math.MaxInt-b {
		return 0, false
	}
	return a + b, true
}

func copyItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items), len(items)+1)
	copy(out, items)
	return out
}

func removeAt(items []domain.CartItem, i int) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func (s State) clone() State {
	out := State{Items: copyItems(s.Items)}
	if len(s.Items) == 0 {
		out.Items = nil
	}
	if s.LastOrder != nil {
		order := *s.LastOrder
		order.Items = copyItems(s.LastOrder.Items)
		out.LastOrder = &order
	}
	return out
}
