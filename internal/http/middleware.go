package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/toxic-toad/aquaventure/internal/domain"
	"github.com/toxic-toad/aquaventure/internal/identity"
)

const (
	CartSessionCookie = "cart_session"
	CartSessionHeader = "X-Cart-Session"

	cartSessionMaxAge = 30 * 24 * 60 * 60
)

type ctxKey int

const (
	cartSessionKey ctxKey = iota
	accountKey
)

type StatusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *StatusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *StatusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// LoggerMiddleware puts a request-scoped logger in the context and logs
// every completed request.
func LoggerMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := logger.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			ctx := reqLog.WithContext(r.Context())

			rec := &StatusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			reqLog.Info().Ctx(ctx).
				Str("method", r.Method).
				Str("url", r.URL.Path).
				Int("status", rec.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}

// CartSession resolves the caller's cart session from the cookie or the
// X-Cart-Session header, issuing a new one when neither holds a valid id.
func CartSession(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := sessionIDFromRequest(r)
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     CartSessionCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   cartSessionMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(CartSessionHeader, id)

			ctx := context.WithValue(r.Context(), cartSessionKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionIDFromRequest(r *http.Request) string {
	candidates := []string{r.Header.Get(CartSessionHeader)}
	if c, err := r.Cookie(CartSessionCookie); err == nil {
		candidates = append(candidates, c.Value)
	}
	for _, c := range candidates {
		if id, err := uuid.Parse(c); err == nil {
			return id.String()
		}
	}
	return ""
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Account, error)
}

// RequireAuth rejects requests without a valid bearer session token.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := auth.Authenticate(r.Context(), bearerToken(r))
			if errors.Is(err, identity.ErrSessionNotFound) {
				respondError(w, r, http.StatusUnauthorized, "unauthorized", identity.Message(err))
				return
			}
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("authentication failed")
				respondError(w, r, http.StatusInternalServerError, "internal_error", identity.Message(err))
				return
			}
			ctx := context.WithValue(r.Context(), accountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func getCartSession(ctx context.Context) string {
	if id, ok := ctx.Value(cartSessionKey).(string); ok {
		return id
	}
	return ""
}

func getAccount(ctx context.Context) (domain.Account, bool) {
	account, ok := ctx.Value(accountKey).(domain.Account)
	return account, ok
}
