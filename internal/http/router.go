// Package http exposes the storefront over a JSON API.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/toxic-toad/aquaventure/internal/catalog"
)

type Deps struct {
	Catalog  *catalog.Catalog
	Carts    CartSessions
	Checkout Checkout
	Accounts Accounts
	Orders   OrderHistory // optional
	Log      zerolog.Logger

	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	SecureCookies      bool
}

const defaultRequestTimeout = 30 * time.Second

func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = defaultRequestTimeout
	}

	catalogHandler := NewCatalogHandler(d.Catalog)
	cartHandler := NewCartHandler(d.Carts, d.Catalog, d.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(d.Carts, d.Checkout, d.RequestTimeout)
	ordersHandler := NewOrdersHandler(d.Orders, d.RequestTimeout)
	authHandler := NewAuthHandler(d.Accounts, d.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(middleware.Compress(5))
	if d.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(d.MaxRequestBodySize))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/products", catalogHandler.ListProducts)
		r.Get("/products/{id}", catalogHandler.GetProduct)
		r.Get("/categories", catalogHandler.ListCategories)
		r.Get("/featured", catalogHandler.Featured)

		r.Group(func(r chi.Router) {
			r.Use(CartSession(d.SecureCookies))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Put("/", cartHandler.ReplaceCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			})
			r.Post("/checkout", checkoutHandler.Submit)
			r.Get("/orders/last", checkoutHandler.LastOrder)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.SignUp)
			r.Post("/login", authHandler.SignIn)
			r.Post("/logout", authHandler.SignOut)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(d.Accounts))

			r.Get("/profile", authHandler.GetProfile)
			r.Put("/profile", authHandler.UpdateProfile)
			r.Get("/orders", ordersHandler.ListOrders)
		})
	})

	return r
}
