package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartItem_FlatJSON(t *testing.T) {
	item := CartItem{
		Product: Product{
			ID:             "3",
			Name:           "Java Fern",
			Price:          decimal.RequireFromString("8.49"),
			Category:       "Plants",
			Specifications: map[string]string{"Light": "Low"},
			Stock:          40,
		},
		Quantity: 2,
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "3", raw["id"])
	assert.Equal(t, "8.49", raw["price"])
	assert.EqualValues(t, 2, raw["quantity"])
	assert.NotContains(t, raw, "Product")

	var back CartItem
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "Java Fern", back.Name)
	assert.Equal(t, 2, back.Quantity)
	assert.True(t, decimal.RequireFromString("16.98").Equal(back.Subtotal()))
}

func TestValidator_NoWhitespace(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Var("4870", "nowhitespace"))
	assert.Error(t, v.Var("48 70", "nowhitespace"))
	assert.Error(t, v.Var("4870\t", "nowhitespace"))
}

func TestValidator_MaxBytes(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Var(strings.Repeat("a", 72), "maxbytes=72"))
	assert.Error(t, v.Var(strings.Repeat("a", 73), "maxbytes=72"))
	// 30 runes, 90 bytes
	assert.Error(t, v.Var(strings.Repeat("あ", 30), "maxbytes=72"))
	assert.Error(t, v.Var("abc", "maxbytes=lots"))
}

func TestValidator_ProfileRules(t *testing.T) {
	v := NewValidator()
	ok := Profile{UserID: "reefer", FullName: "Ada", PhoneNumber: "0412345678", Gender: GenderFemale}
	require.NoError(t, v.Struct(ok))

	bad := Profile{UserID: "abc", FullName: "", Email: "nope", PhoneNumber: "-123456789", Gender: "Other"}
	fields, isValidation := FieldMessages(v.Struct(bad), map[string]string{"user_id.min": "too short"}, "invalid")
	require.True(t, isValidation)
	assert.Equal(t, map[string]string{
		"user_id":      "too short",
		"full_name":    "invalid",
		"email":        "invalid",
		"phone_number": "invalid",
		"gender":       "invalid",
	}, fields)
}

func TestFieldMessages_NotValidationError(t *testing.T) {
	_, ok := FieldMessages(assert.AnError, nil, "")
	assert.False(t, ok)
}

func TestOrder_ItemCount(t *testing.T) {
	o := Order{Items: []CartItem{{Quantity: 2}, {Quantity: 3}}}
	assert.Equal(t, 5, o.ItemCount())
}
