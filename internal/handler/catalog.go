package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/backend"
)

// ProductLister reads a tenant catalog. Satisfied by *backend.Client.
type ProductLister interface {
	ListProducts(ctx context.Context, slug string, includeInactive bool) ([]backend.Product, error)
}

// CatalogHandler proxies the tenant catalog for a storefront.
type CatalogHandler struct {
	fronts   Storefronts
	products ProductLister
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(fronts Storefronts, products ProductLister) *CatalogHandler {
	return &CatalogHandler{fronts: fronts, products: products}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
// Expected to be mounted inside a storefront-scoped subrouter: /storefronts/{sid}/products
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type productListResponse struct {
	Products []backend.Product `json:"products"`
}

// List returns the products of the storefront's tenant.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}

	includeInactive := false
	if v := r.URL.Query().Get("include_inactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid include_inactive"})
			return
		}
		includeInactive = b
	}

	products, err := h.products.ListProducts(r.Context(), sf.Slug, includeInactive)
	if err != nil {
		zap.L().Error("listing products", zap.String("tenant_slug", sf.Slug), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "catalog unavailable"})
		return
	}
	if products == nil {
		products = []backend.Product{}
	}
	writeJSON(w, http.StatusOK, productListResponse{Products: products})
}
