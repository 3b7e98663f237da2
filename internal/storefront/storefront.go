// Package storefront owns the state of one open storefront page: its
// cart, checkout and order status poller, wired to one tenant.
package storefront

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/backend"
	"github.com/danielandresolateseguel/server1/internal/cart"
	"github.com/danielandresolateseguel/server1/internal/checkout"
	"github.com/danielandresolateseguel/server1/internal/clock"
	"github.com/danielandresolateseguel/server1/internal/enum"
	"github.com/danielandresolateseguel/server1/internal/event"
	"github.com/danielandresolateseguel/server1/internal/orderstatus"
	"github.com/danielandresolateseguel/server1/internal/storage"
	"github.com/danielandresolateseguel/server1/internal/tenant"
)

// API is the part of the tenant API a storefront uses.
// *backend.Client implements it.
type API interface {
	GetConfig(ctx context.Context, slug string) (*tenant.Config, error)
	GetOrder(ctx context.Context, id string) (*backend.OrderDetail, error)
	SubmitOrder(ctx context.Context, payload backend.OrderPayload) (*backend.SubmitResult, error)
}

// Page is what a storefront page declares about itself.
type Page struct {
	storage.Identity

	// SlugOverride comes from the ?tenant= query parameter.
	SlugOverride string `json:"slug_override,omitempty"`
	BusinessSlug string `json:"business_slug,omitempty"`
}

// TenantSlug resolves the page's tenant and applies the alias table, so
// checkout and the status poller always agree on the storage keys.
func (p Page) TenantSlug() string {
	return tenant.CanonicalSlug(tenant.ResolveSlug(p.SlugOverride, p.BusinessSlug, p.VendorSlug, p.Page))
}

// Timers are the poller periods. Zero values take the poller defaults.
type Timers struct {
	Poll            time.Duration
	Toggle          time.Duration
	Background      time.Duration
	BackgroundDelay time.Duration
	FetchTimeout    time.Duration
	SubmitTimeout   time.Duration
}

// Deps are shared by every storefront of a process.
type Deps struct {
	API      API
	Storage  storage.Store
	Clock    clock.Clock
	Logger   *zap.Logger
	Location *time.Location
	Timers   Timers
}

// Storefront is one open page.
type Storefront struct {
	ID   string
	Page Page
	Slug string

	Config   *tenant.Holder
	Cart     *cart.Store
	Checkout *checkout.Service
	Status   *orderstatus.Poller

	api API
	log *zap.Logger
}

// New wires a storefront, loads the tenant config and the persisted cart,
// and starts the background status checker. A config that cannot be
// fetched leaves the defaults in place.
func New(ctx context.Context, id string, page Page, deps Deps, pub event.Publisher) *Storefront {
	page.Identity = page.Identity.WithDefaults()
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sf := &Storefront{
		ID:     id,
		Page:   page,
		Slug:   page.TenantSlug(),
		Config: &tenant.Holder{},
		api:    deps.API,
		log:    log.With(zap.String("storefront", id)),
	}
	sf.log = sf.log.With(zap.String("tenant_slug", sf.Slug))

	sf.ReloadConfig(ctx)

	sf.Cart = cart.NewStore(cart.Options{
		Storage:   deps.Storage,
		Key:       page.CartStorageKey(),
		LegacyKey: page.LegacyCartStorageKey(),
		Shipping: func() int64 {
			return sf.Config.Current().ShippingFor(enum.OrderTypeDelivery)
		},
		Clock:     deps.Clock,
		Publisher: pub,
		Logger:    sf.log,
	})
	sf.Cart.Load(ctx)

	sf.Checkout = checkout.NewService(checkout.ServiceOptions{
		Cart:          sf.Cart,
		Submitter:     deps.API,
		Storage:       deps.Storage,
		Settings:      checkout.HolderSettings(sf.Slug, page.Category, sf.Config),
		Publisher:     pub,
		Logger:        sf.log,
		SubmitTimeout: deps.Timers.SubmitTimeout,
	})

	sf.Status = orderstatus.NewPoller(orderstatus.Options{
		Fetcher:            deps.API,
		Storage:            deps.Storage,
		Slug:               sf.Slug,
		Clock:              deps.Clock,
		Publisher:          pub,
		Logger:             sf.log,
		Location:           deps.Location,
		PollInterval:       deps.Timers.Poll,
		ToggleInterval:     deps.Timers.Toggle,
		BackgroundInterval: deps.Timers.Background,
		BackgroundDelay:    deps.Timers.BackgroundDelay,
		FetchTimeout:       deps.Timers.FetchTimeout,
	})
	sf.Status.StartBackground()
	return sf
}

// ReloadConfig fetches the tenant config again.
func (sf *Storefront) ReloadConfig(ctx context.Context) {
	if sf.api == nil {
		return
	}
	cfg, err := sf.api.GetConfig(ctx, sf.Slug)
	if err != nil {
		sf.log.Warn("tenant config unavailable, using defaults", zap.Error(err))
		return
	}
	sf.Config.Set(*cfg)
}

// Close stops the storefront's timers.
func (sf *Storefront) Close() {
	sf.Status.Stop()
}
