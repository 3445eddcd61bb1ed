// Package catalog holds the read-only product list the storefront sells.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/toxic-toad/aquaventure/internal/domain"
)

// AllCategories selects every product in ListByCategory.
const AllCategories = "all"

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateProduct = errors.New("duplicate product id")
	ErrInvalidProduct   = errors.New("invalid product")
)

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Catalog is immutable after New. All accessors return copies.
type Catalog struct {
	products []domain.Product
	byID     map[string]int
}

func New(products []domain.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]domain.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if err := validateProduct(p); err != nil {
			return nil, err
		}
		if _, ok := c.byID[p.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProduct, p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, clone(p))
	}
	return c, nil
}

func validateProduct(p domain.Product) error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: empty id", ErrInvalidProduct)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: %q has negative price", ErrInvalidProduct, p.ID)
	case p.Stock < 0:
		return fmt.Errorf("%w: %q has negative stock", ErrInvalidProduct, p.ID)
	}
	return nil
}

func (c *Catalog) List() []domain.Product {
	out := make([]domain.Product, len(c.products))
	for i, p := range c.products {
		out[i] = clone(p)
	}
	return out
}

func (c *Catalog) FindByID(id string) (domain.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, false
	}
	return clone(c.products[i]), true
}

func (c *Catalog) Len() int {
	return len(c.products)
}

// ListByCategory matches category names case-insensitively. An empty
// name or AllCategories returns the whole catalog.
func (c *Catalog) ListByCategory(name string) []domain.Product {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, AllCategories) {
		return c.List()
	}
	var out []domain.Product
	for _, p := range c.products {
		if strings.EqualFold(p.Category, name) {
			out = append(out, clone(p))
		}
	}
	return out
}

// Categories returns every category with its product count, sorted by name.
func (c *Catalog) Categories() []CategoryCount {
	out := c.categoriesInOrder()
	sortByName(out)
	return out
}

// FeaturedCategories takes the first n categories in catalog order and
// returns them sorted by name.
func (c *Catalog) FeaturedCategories(n int) []CategoryCount {
	out := c.categoriesInOrder()
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	sortByName(out)
	return out
}

// Featured returns the first n products.
func (c *Catalog) Featured(n int) []domain.Product {
	if n < 0 {
		n = 0
	}
	if n > len(c.products) {
		n = len(c.products)
	}
	out := make([]domain.Product, n)
	for i := range out {
		out[i] = clone(c.products[i])
	}
	return out
}

func (c *Catalog) categoriesInOrder() []CategoryCount {
	idx := make(map[string]int)
	out := make([]CategoryCount, 0)
	for _, p := range c.products {
		i, ok := idx[p.Category]
		if !ok {
			idx[p.Category] = len(out)
			out = append(out, CategoryCount{Name: p.Category, Count: 1})
			continue
		}
		out[i].Count++
	}
	return out
}

func sortByName(cc []CategoryCount) {
	sort.SliceStable(cc, func(i, j int) bool {
		return strings.ToLower(cc[i].Name) < strings.ToLower(cc[j].Name)
	})
}

func clone(p domain.Product) domain.Product {
	if p.Specifications != nil {
		specs := make(map[string]string, len(p.Specifications))
		for k, v := range p.Specifications {
			specs[k] = v
		}
		p.Specifications = specs
	}
	return p
}
