package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/toxic-toad/aquaventure/internal/domain"
	"github.com/toxic-toad/aquaventure/internal/identity"
)

type Accounts interface {
	Authenticator
	SignUp(ctx context.Context, req identity.SignUpRequest) (domain.Account, identity.Session, error)
	SignIn(ctx context.Context, req identity.SignInRequest) (domain.Account, identity.Session, error)
	SignOut(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, accountID string, upd identity.ProfileUpdate) (domain.Account, error)
}

type AuthHandler struct {
	accounts Accounts
	timeout  time.Duration
}

func NewAuthHandler(accounts Accounts, timeout time.Duration) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		timeout:  timeout,
	}
}

type AuthResponseDTO struct {
	Account domain.Account   `json:"account"`
	Session identity.Session `json:"session"`
}

// POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req identity.SignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, session, err := h.accounts.SignUp(ctx, req)
	if err != nil {
		respondIdentityError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, AuthResponseDTO{Account: account, Session: session})
}

// POST /api/v1/auth/login
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req identity.SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, session, err := h.accounts.SignIn(ctx, req)
	if err != nil {
		respondIdentityError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, AuthResponseDTO{Account: account, Session: session})
}

// POST /api/v1/auth/logout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.accounts.SignOut(ctx, bearerToken(r)); err != nil {
		respondIdentityError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := getAccount(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	respondJSON(w, r, http.StatusOK, account)
}

// PUT /api/v1/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	account, ok := getAccount(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var upd identity.ProfileUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	updated, err := h.accounts.UpdateProfile(ctx, account.ID, upd)
	if err != nil {
		respondIdentityError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, updated)
}

func respondIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	msg := identity.Message(err)

	var formErr *identity.FormError
	switch {
	case errors.As(err, &formErr):
		respondFields(w, r, http.StatusUnprocessableEntity, "validation_failed", msg, formErr.Fields)
	case errors.Is(err, identity.ErrEmailInUse):
		respondError(w, r, http.StatusConflict, "email_in_use", msg)
	case errors.Is(err, identity.ErrWrongPassword), errors.Is(err, identity.ErrAccountNotFound):
		respondError(w, r, http.StatusUnauthorized, "invalid_credentials", msg)
	case errors.Is(err, identity.ErrSessionNotFound):
		respondError(w, r, http.StatusUnauthorized, "unauthorized", msg)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("identity request failed")
		respondError(w, r, http.StatusInternalServerError, "internal_error", msg)
	}
}
