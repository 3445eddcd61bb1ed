package identity

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidEmail    = errors.New("invalid email")
	ErrWeakPassword    = errors.New("weak password")
	ErrEmailInUse      = errors.New("email already in use")
	ErrAccountNotFound = errors.New("account not found")
	ErrWrongPassword   = errors.New("wrong password")
	ErrSessionNotFound = errors.New("session not found")
)

// FormError lists rejected form fields by JSON name. It matches
// ErrInvalidEmail and ErrWeakPassword with errors.Is when those fields
// were rejected.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid form: " + strings.Join(names, ", ")
}

func (e *FormError) Is(target error) bool {
	switch target {
	case ErrInvalidEmail:
		_, ok := e.Fields["email"]
		return ok
	case ErrWeakPassword:
		return e.Fields["password"] == formMessages["password.min"]
	}
	return false
}

// Message maps an identity error to the sentence shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWrongPassword), errors.Is(err, ErrAccountNotFound):
		return "Invalid email or password."
	case errors.Is(err, ErrEmailInUse):
		return "An account with this email already exists."
	case errors.Is(err, ErrWeakPassword):
		return "Password must be at least 6 characters."
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, ErrSessionNotFound):
		return "Your session has expired. Please log in again."
	}
	var fe *FormError
	if errors.As(err, &fe) {
		return "Please correct the highlighted fields."
	}
	return "Something went wrong. Please try again."
}
