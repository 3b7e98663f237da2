package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/backend"
	"github.com/danielandresolateseguel/server1/internal/clock"
	"github.com/danielandresolateseguel/server1/internal/config"
	"github.com/danielandresolateseguel/server1/internal/router"
	"github.com/danielandresolateseguel/server1/internal/storage"
	"github.com/danielandresolateseguel/server1/internal/storefront"
	"github.com/danielandresolateseguel/server1/internal/tenant"
	"github.com/danielandresolateseguel/server1/internal/ws"
)

type stubAPI struct{}

func (stubAPI) GetConfig(context.Context, string) (*tenant.Config, error) {
	return &tenant.Config{}, nil
}

func (stubAPI) GetOrder(context.Context, string) (*backend.OrderDetail, error) {
	return nil, backend.ErrOrderNotFound
}

func (stubAPI) SubmitOrder(context.Context, backend.OrderPayload) (*backend.SubmitResult, error) {
	return &backend.SubmitResult{OrderID: "1"}, nil
}

func (stubAPI) ListProducts(context.Context, string, bool) ([]backend.Product, error) {
	return []backend.Product{{Name: "Pizza"}}, nil
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"

	reg := storefront.NewRegistry(storefront.Deps{
		API:     stubAPI{},
		Storage: storage.NewMemoryStore(),
		Clock:   clock.Fake(time.Unix(0, 0)),
	}, nil)
	t.Cleanup(reg.CloseAll)

	return router.New(cfg, reg, stubAPI{}, ws.NewHub(nil), zap.NewNop())
}

func open(t *testing.T, h http.Handler) (id, token string) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/storefronts", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		ID    string `json:"storefront_id"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.ID, resp.Token
}

func TestHealth(t *testing.T) {
	h := newRouter(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.0.0"}`, rr.Body.String())
}

func TestStorefrontRoutesRequireToken(t *testing.T) {
	h := newRouter(t)
	id, token := open(t, h)
	otherID, _ := open(t, h)

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"own token", "/storefronts/" + id + "/cart", "Bearer " + token, http.StatusOK},
		{"no token", "/storefronts/" + id + "/cart", "", http.StatusUnauthorized},
		{"garbage token", "/storefronts/" + id + "/cart", "Bearer nope", http.StatusUnauthorized},
		{"other storefront", "/storefronts/" + otherID + "/cart", "Bearer " + token, http.StatusForbidden},
		{"status", "/storefronts/" + id + "/status", "Bearer " + token, http.StatusOK},
		{"products", "/storefronts/" + id + "/products", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code, rr.Body.String())
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newRouter(t)
	req := httptest.NewRequest("OPTIONS", "/storefronts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}
