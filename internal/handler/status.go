package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// StatusHandler drives the order status modal of a storefront.
type StatusHandler struct {
	fronts Storefronts
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(fronts Storefronts) *StatusHandler {
	return &StatusHandler{fronts: fronts}
}

// RegisterRoutes registers order status endpoints on the given Chi router.
// Expected to be mounted inside a storefront-scoped subrouter: /storefronts/{sid}/status
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/open", h.Open)
	r.Post("/close", h.Close)
	r.Post("/refresh", h.Refresh)
	r.Post("/toggle", h.Toggle)
}

// Get returns the modal state without fetching.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sf.Status.Snapshot())
}

// Open shows the modal and loads the last order. Load failures are part
// of the returned state, not HTTP errors.
func (h *StatusHandler) Open(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sf.Status.Open(r.Context()))
}

func (h *StatusHandler) Close(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	sf.Status.Close()
	writeJSON(w, http.StatusOK, sf.Status.Snapshot())
}

// Refresh re-fetches the open order. Failures keep the last view.
func (h *StatusHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	sf.Status.Refresh(r.Context())
	writeJSON(w, http.StatusOK, sf.Status.Snapshot())
}

// Toggle flips the call-to-action between chat and pay.
func (h *StatusHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	sf.Status.Toggle()
	writeJSON(w, http.StatusOK, sf.Status.Snapshot())
}
