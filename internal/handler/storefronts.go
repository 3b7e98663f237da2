package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/auth"
	"github.com/danielandresolateseguel/server1/internal/cart"
	"github.com/danielandresolateseguel/server1/internal/storefront"
	"github.com/danielandresolateseguel/server1/internal/tenant"
)

// Storefronts defines the registry methods needed by the handlers.
// Satisfied by *storefront.Registry; narrow interface for testability.
type Storefronts interface {
	Create(ctx context.Context, page storefront.Page) *storefront.Storefront
	Get(id string) (*storefront.Storefront, error)
	Remove(id string) error
}

// StorefrontHandler opens and closes storefront sessions.
type StorefrontHandler struct {
	fronts    Storefronts
	jwtSecret string
	tokenTTL  time.Duration
}

// NewStorefrontHandler creates a new StorefrontHandler.
func NewStorefrontHandler(fronts Storefronts, jwtSecret string, tokenTTL time.Duration) *StorefrontHandler {
	return &StorefrontHandler{fronts: fronts, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// RegisterRoutes registers the public session endpoint: POST /storefronts
func (h *StorefrontHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
}

// RegisterSessionRoutes registers endpoints scoped to one storefront.
// Expected to be mounted inside /storefronts/{sid}
func (h *StorefrontHandler) RegisterSessionRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Close)
	r.Get("/config", h.Config)
	r.Post("/config/reload", h.ReloadConfig)
}

// --- Request / Response types ---

type openStorefrontResponse struct {
	storefrontResponse
	Token string `json:"token"`
}

type storefrontResponse struct {
	ID           string        `json:"storefront_id"`
	TenantSlug   string        `json:"tenant_slug"`
	Category     string        `json:"category"`
	CartKey      string        `json:"cart_key"`
	CheckoutMode string        `json:"checkout_mode"`
	Cart         cart.Changed  `json:"cart"`
	Config       tenant.Config `json:"config"`
}

func toStorefrontResponse(sf *storefront.Storefront) storefrontResponse {
	cfg := sf.Config.Current()
	return storefrontResponse{
		ID:           sf.ID,
		TenantSlug:   sf.Slug,
		Category:     sf.Page.Category,
		CartKey:      sf.Page.CartStorageKey(),
		CheckoutMode: cfg.CheckoutMode(sf.Page.Category),
		Cart:         sf.Cart.Snapshot(),
		Config:       cfg,
	}
}

// --- Handlers ---

// Open creates a storefront for the page described in the body and returns
// its session token.
func (h *StorefrontHandler) Open(w http.ResponseWriter, r *http.Request) {
	var page storefront.Page
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&page); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	if q := r.URL.Query().Get("tenant"); q != "" {
		page.SlugOverride = q
	}

	sf := h.fronts.Create(r.Context(), page)
	token, err := auth.GenerateToken(h.jwtSecret, sf.ID, sf.Slug, h.tokenTTL)
	if err != nil {
		zap.L().Error("signing storefront token", zap.String("storefront", sf.ID), zap.Error(err))
		h.fronts.Remove(sf.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, openStorefrontResponse{
		storefrontResponse: toStorefrontResponse(sf),
		Token:              token,
	})
}

// Get returns the storefront state.
func (h *StorefrontHandler) Get(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toStorefrontResponse(sf))
}

// Close stops the storefront's timers and forgets it.
func (h *StorefrontHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.fronts.Remove(chi.URLParam(r, "sid")); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "storefront not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Config returns the tenant config currently in use.
func (h *StorefrontHandler) Config(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sf.Config.Current())
}

// ReloadConfig fetches the tenant config again.
func (h *StorefrontHandler) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	sf.ReloadConfig(r.Context())
	writeJSON(w, http.StatusOK, sf.Config.Current())
}

// --- Helpers ---

func lookup(fronts Storefronts, w http.ResponseWriter, r *http.Request) (*storefront.Storefront, bool) {
	sf, err := fronts.Get(chi.URLParam(r, "sid"))
	if errors.Is(err, storefront.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "storefront not found"})
		return nil, false
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return nil, false
	}
	return sf, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}
