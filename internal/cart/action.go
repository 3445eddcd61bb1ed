package cart

import (
	"fmt"

	"github.com/toxic-toad/aquaventure/internal/domain"
)

type Kind int

const (
	KindAddItem Kind = iota + 1
	KindRemoveItem
	KindUpdateQuantity
	KindClearCart
	KindSetLastOrder
	KindLoadCart
)

func (k Kind) String() string {
	switch k {
	case KindAddItem:
		return "ADD_ITEM"
	case KindRemoveItem:
		return "REMOVE_ITEM"
	case KindUpdateQuantity:
		return "UPDATE_QUANTITY"
	case KindClearCart:
		return "CLEAR_CART"
	case KindSetLastOrder:
		return "SET_LAST_ORDER"
	case KindLoadCart:
		return "LOAD_CART"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Action is a cart mutation. The set of actions is closed: only the
// types in this file implement it.
type Action interface {
	Kind() Kind
	sealed()
}

// AddItem increments the quantity of an existing line or appends a new
// one. A non-positive quantity is ignored.
type AddItem struct {
	Product  domain.Product
	Quantity int
}

type RemoveItem struct {
	ProductID string
}

// UpdateQuantity sets a line's quantity to max(0, Quantity); zero
// removes the line.
type UpdateQuantity struct {
	ProductID string
	Quantity  int
}

type ClearCart struct{}

type SetLastOrder struct {
	Order domain.Order
}

// LoadCart replaces the item list wholesale.
type LoadCart struct {
	Items []domain.CartItem
}

func (AddItem) Kind() Kind        { return KindAddItem }
func (RemoveItem) Kind() Kind     { return KindRemoveItem }
func (UpdateQuantity) Kind() Kind { return KindUpdateQuantity }
func (ClearCart) Kind() Kind      { return KindClearCart }
func (SetLastOrder) Kind() Kind   { return KindSetLastOrder }
func (LoadCart) Kind() Kind       { return KindLoadCart }

func (AddItem) sealed()        {}
func (RemoveItem) sealed()     {}
func (UpdateQuantity) sealed() {}
func (ClearCart) sealed()      {}
func (SetLastOrder) sealed()   {}
func (LoadCart) sealed()       {}
