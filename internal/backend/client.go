// Package backend is the storefront's client for the tenant REST API
// (/api/config, /api/orders, /api/products). The API itself is owned by
// another service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/tenant"
)

// Errors returned by the client.
var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrMissingOrderID = errors.New("response has no order_id")
)

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
}

// Client talks to the tenant API at BaseURL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a Client. A zero timeout leaves requests bounded only
// by their context.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend: base url %q must be absolute", baseURL)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}, nil
}

// GetConfig fetches the configuration of a tenant.
func (c *Client) GetConfig(ctx context.Context, slug string) (*tenant.Config, error) {
	var cfg tenant.Config
	q := url.Values{"slug": {slug}}
	if err := c.do(ctx, http.MethodGet, "/api/config", q, nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SubmitOrder posts an order. It does not retry; the customer re-attempts
// checkout instead.
func (c *Client) SubmitOrder(ctx context.Context, payload OrderPayload) (*SubmitResult, error) {
	var res SubmitResult
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, payload, &res); err != nil {
		return nil, err
	}
	if res.OrderID == "" {
		return nil, ErrMissingOrderID
	}
	c.log.Info("order submitted",
		zap.String("tenant_slug", payload.TenantSlug),
		zap.String("order_id", res.OrderID.String()),
	)
	return &res, nil
}

// GetOrder fetches an order and its items. An unknown id yields
// ErrOrderNotFound.
func (c *Client) GetOrder(ctx context.Context, id string) (*OrderDetail, error) {
	var detail OrderDetail
	err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, nil, &detail)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &detail, nil
}

// ListProducts fetches the catalog of a tenant.
func (c *Client) ListProducts(ctx context.Context, slug string, includeInactive bool) ([]Product, error) {
	var res struct {
		Products []Product `json:"products"`
	}
	q := url.Values{
		"tenant_slug":      {slug},
		"include_inactive": {strconv.FormatBool(includeInactive)},
	}
	if err := c.do(ctx, http.MethodGet, "/api/products", q, nil, &res); err != nil {
		return nil, err
	}
	return res.Products, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(snippet)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
