package domain

import "github.com/shopspring/decimal"

// CartItem is a product snapshot plus the selected quantity. It is
// serialized flat: the product fields followed by "quantity".
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
