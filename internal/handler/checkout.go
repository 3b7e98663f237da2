package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/backend"
	"github.com/danielandresolateseguel/server1/internal/cart"
	"github.com/danielandresolateseguel/server1/internal/checkout"
)

// CheckoutHandler runs checkout for a storefront.
type CheckoutHandler struct {
	fronts Storefronts
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(fronts Storefronts) *CheckoutHandler {
	return &CheckoutHandler{fronts: fronts}
}

// RegisterRoutes registers checkout endpoints on the given Chi router.
// Expected to be mounted inside a storefront-scoped subrouter: /storefronts/{sid}/checkout
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Checkout)
	r.Post("/preview", h.Preview)
}

// --- Response types ---

type checkoutResponse struct {
	Message  string               `json:"message"`
	Fallback bool                 `json:"fallback,omitempty"`
	URL      string               `json:"url,omitempty"`
	Totals   cart.Totals          `json:"totals"`
	Payload  backend.OrderPayload `json:"payload"`
}

type validationResponse struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

func toCheckoutResponse(o *checkout.Order) checkoutResponse {
	return checkoutResponse{
		Message:  o.Message.Text,
		Fallback: o.Message.Fallback,
		URL:      o.URL,
		Totals:   o.Totals,
		Payload:  o.Payload,
	}
}

// --- Handlers ---

// Checkout validates the form, opens the WhatsApp link and submits the
// order in the background. The submission outcome reaches the page as an
// event on the storefront's websocket.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	oc, ok := decodeOrderContext(w, r)
	if !ok {
		return
	}
	if oc.OrderType == "" {
		oc.OrderType = sf.Cart.SelectedOrderType()
	}

	res, err := sf.Checkout.Checkout(r.Context(), oc)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	zap.L().Info("checkout started",
		zap.String("storefront", sf.ID),
		zap.String("tenant_slug", res.Order.Payload.TenantSlug),
		zap.String("order_type", res.Order.Payload.OrderType),
		zap.Int64("total", res.Order.Totals.Total),
	)
	writeJSON(w, http.StatusAccepted, toCheckoutResponse(res.Order))
}

// Preview renders the message and link without submitting or clearing
// anything.
func (h *CheckoutHandler) Preview(w http.ResponseWriter, r *http.Request) {
	sf, ok := lookup(h.fronts, w, r)
	if !ok {
		return
	}
	oc, ok := decodeOrderContext(w, r)
	if !ok {
		return
	}
	if oc.OrderType == "" {
		oc.OrderType = sf.Cart.SelectedOrderType()
	}

	order, err := checkout.Build(sf.Cart.Items(), oc, checkout.Settings{
		TenantSlug: sf.Slug,
		Category:   sf.Page.Category,
		Config:     sf.Config.Current(),
	})
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckoutResponse(order))
}

func decodeOrderContext(w http.ResponseWriter, r *http.Request) (checkout.OrderContext, bool) {
	var oc checkout.OrderContext
	if err := json.NewDecoder(r.Body).Decode(&oc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return oc, false
	}
	return oc, true
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	var ve *checkout.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: ve.Message, Field: ve.Field})
		return
	}
	zap.L().Error("checkout failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
