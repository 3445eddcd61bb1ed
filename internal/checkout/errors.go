package checkout

import (
	"errors"
	"sort"
	"strings"
)

var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

// ValidationError carries one message per rejected field, keyed by the
// field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid customer details: " + strings.Join(names, ", ")
}
