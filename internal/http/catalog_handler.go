package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/toxic-toad/aquaventure/internal/catalog"
	"github.com/toxic-toad/aquaventure/internal/domain"
)

const defaultFeaturedLimit = 4

type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

type FeaturedResponseDTO struct {
	Products   []domain.Product        `json:"products"`
	Categories []catalog.CategoryCount `json:"categories"`
}

// GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.ListByCategory(r.URL.Query().Get("category"))
	if products == nil {
		products = []domain.Product{}
	}
	respondJSON(w, r, http.StatusOK, products)
}

// GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.catalog.FindByID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, r, http.StatusNotFound, "product_not_found", "product not found")
		return
	}
	respondJSON(w, r, http.StatusOK, product)
}

// GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, h.catalog.Categories())
}

// GET /api/v1/featured
func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit := defaultFeaturedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, r, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	respondJSON(w, r, http.StatusOK, FeaturedResponseDTO{
		Products:   h.catalog.Featured(limit),
		Categories: h.catalog.FeaturedCategories(limit),
	})
}
