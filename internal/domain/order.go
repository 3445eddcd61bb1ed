package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CustomerDetails struct {
	Name       string `json:"name" validate:"min=2"`
	Email      string `json:"email" validate:"required,email"`
	Address    string `json:"address" validate:"min=5"`
	City       string `json:"city" validate:"min=2"`
	PostalCode string `json:"postal_code" validate:"required,min=3,nowhitespace"`
	Country    string `json:"country" validate:"min=2"`
}

// Order is immutable once placed. TotalAmount is fixed at creation and
// never recomputed from Items.
type Order struct {
	ID          string          `json:"id"`
	Items       []CartItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Customer    CustomerDetails `json:"customer"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (o Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
