package domain

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator for the tags on domain types. Errors
// name fields by their JSON name. The nowhitespace and maxbytes rules are
// registered; maxbytes=N bounds the UTF-8 length, unlike max which counts
// runes.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// registration only fails for empty tags or nil funcs
	_ = v.RegisterValidation("nowhitespace", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	})
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= n
	})
	return v
}

// FieldMessages converts validator errors to one message per field,
// looked up in messages by "field.tag". Unknown pairs get fallback. ok
// is false when err is not a validation error.
func FieldMessages(err error, messages map[string]string, fallback string) (fields map[string]string, ok bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	fields = make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		msg, found := messages[fe.Field()+"."+fe.Tag()]
		if !found {
			msg = fallback
		}
		fields[fe.Field()] = msg
	}
	return fields, true
}
