package checkout

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/toxic-toad/aquaventure/internal/domain"
)

var fieldMessages = map[string]string{
	"name.min":                 "Name must be at least 2 characters.",
	"email.required":           "Invalid email address.",
	"email.email":              "Invalid email address.",
	"address.min":              "Address must be at least 5 characters.",
	"city.min":                 "City must be at least 2 characters.",
	"postal_code.required":     "Postal code is required.",
	"postal_code.min":          "Postal code is too short.",
	"postal_code.nowhitespace": "Postal code cannot contain spaces.",
	"country.min":              "Country must be at least 2 characters.",
}

// NormalizeDetails trims surrounding whitespace from every field.
func NormalizeDetails(d domain.CustomerDetails) domain.CustomerDetails {
	return domain.CustomerDetails{
		Name:       strings.TrimSpace(d.Name),
		Email:      strings.TrimSpace(d.Email),
		Address:    strings.TrimSpace(d.Address),
		City:       strings.TrimSpace(d.City),
		PostalCode: strings.TrimSpace(d.PostalCode),
		Country:    strings.TrimSpace(d.Country),
	}
}

// ValidateDetails returns a *ValidationError listing every rejected field.
func ValidateDetails(v *validator.Validate, d domain.CustomerDetails) error {
	err := v.Struct(d)
	if err == nil {
		return nil
	}
	fields, ok := domain.FieldMessages(err, fieldMessages, "Invalid value.")
	if !ok {
		return err
	}
	return &ValidationError{Fields: fields}
}
