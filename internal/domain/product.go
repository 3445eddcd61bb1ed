package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Price          decimal.Decimal   `json:"price"`
	ImageURL       string            `json:"image_url"`
	Category       string            `json:"category"`
	Brand          string            `json:"brand"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Stock          int               `json:"stock"`
}

// InStock reports whether at least one unit can be sold.
func (p Product) InStock() bool {
	return p.Stock > 0
}
