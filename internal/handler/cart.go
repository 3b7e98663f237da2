package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/danielandresolateseguel/server1/internal/enum"
)

// CartHandler handles the cart endpoints of a storefront.
type CartHandler struct {
	fronts Storefronts
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(fronts Storefronts) *CartHandler {
	return &CartHandler{fronts: fronts}
}

// RegisterRoutes registers cart endpoints on the given Chi router.
// Expected to be mounted inside a storefront-scoped subrouter: /storefronts/{sid}/cart
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Put("/order-type", h.SetOrderType)
	r.Post("/items", h.Add)
	r.Route("/items/{id}", func(r chi.Router) {
		r.Delete("/", h.Remove)
		r.Post("/increment", h.Increment)
		r.Post("/decrement", h.Decrement)
		r.Put("/notes", h.SetNotes)
	})
}

// --- Request types ---

type addItemRequest struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
	Notes string  `json:"notes"`
}

type setNotesRequest struct {
	Notes string `json:"notes"`
}

type setOrderTypeRequest struct {
	OrderType string `json:"order_type"`
}

// --- Handlers ---

// Get returns the cart with its totals.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sf.Cart.Snapshot())
}

// Add puts one unit of a product in the cart. Invalid prices are ignored
// the same way the page ignores them; the response shows the cart as is.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	sf.Cart.Add(r.Context(), req.ID, req.Name, req.Price, req.Image, req.Notes)
	writeJSON(w, http.StatusOK, sf.Cart.Snapshot())
}

func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	if !sf.Cart.Increment(r.Context(), chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}
	writeJSON(w, http.StatusOK, sf.Cart.Snapshot())
}

// Decrement removes one unit; the last unit removes the item.
func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	if !sf.Cart.Decrement(r.Context(), chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}
	writeJSON(w, http.StatusOK, sf.Cart.Snapshot())
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	if !sf.Cart.Remove(r.Context(), chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}
	writeJSON(w, http.StatusOK, sf.Cart.Snapshot())
}

func (h *CartHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	var req setNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !sf.Cart.SetNotes(r.Context(), chi.URLParam(r, "id"), req.Notes) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}
	writeJSON(w, http.StatusOK, sf.Cart.Snapshot())
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	sf.Cart.Clear(r.Context())
	writeJSON(w, http.StatusOK, sf.Cart.Snapshot())
}

// SetOrderType switches the order type the totals are computed for.
func (h *CartHandler) SetOrderType(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	var req setOrderTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	orderType := strings.TrimSpace(req.OrderType)
	if !enum.IsOrderType(orderType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order type"})
		return
	}
	sf.Cart.SetOrderType(orderType)
	writeJSON(w, http.StatusOK, sf.Cart.Snapshot())
}
