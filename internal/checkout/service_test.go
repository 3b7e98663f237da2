package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/backend"
	"github.com/danielandresolateseguel/server1/internal/cart"
	"github.com/danielandresolateseguel/server1/internal/checkout"
	"github.com/danielandresolateseguel/server1/internal/event"
	"github.com/danielandresolateseguel/server1/internal/storage"
	"github.com/danielandresolateseguel/server1/internal/tenant"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	calls    []backend.OrderPayload
	release  chan struct{}
	submitFn func(backend.OrderPayload) (*backend.SubmitResult, error)
}

func (f *fakeSubmitter) SubmitOrder(ctx context.Context, p backend.OrderPayload) (*backend.SubmitResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.submitFn(p)
}

func (f *fakeSubmitter) Calls() []backend.OrderPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.OrderPayload(nil), f.calls...)
}

type serviceFixture struct {
	svc       *checkout.Service
	cart      *cart.Store
	storage   *storage.MemoryStore
	events    *event.Recorder
	submitter *fakeSubmitter
	config    *tenant.Holder
}

func newServiceFixture(t *testing.T, slug string) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		storage: storage.NewMemoryStore(),
		events:  &event.Recorder{},
		config:  &tenant.Holder{},
		submitter: &fakeSubmitter{submitFn: func(backend.OrderPayload) (*backend.SubmitResult, error) {
			return &backend.SubmitResult{OrderID: "42", Total: decimal.NewFromInt(2500)}, nil
		}},
	}
	f.cart = cart.NewStore(cart.Options{Storage: f.storage, Key: "cart_gastronomia_default", Publisher: f.events})
	f.svc = checkout.NewService(checkout.ServiceOptions{
		Cart:      f.cart,
		Submitter: f.submitter,
		Storage:   f.storage,
		Settings:  checkout.HolderSettings(slug, "gastronomia", f.config),
		Publisher: f.events,
		Logger:    zap.NewNop(),
	})

	ctx := context.Background()
	f.cart.Add(ctx, "p1", "Pizza", 1000, "", "")
	f.cart.Add(ctx, "p1", "Pizza", 1000, "", "")
	f.cart.Add(ctx, "p2", "Flan", 500, "", "sin crema")
	f.events.Reset()
	return f
}

func eventTypes(evs []event.Event) []string {
	out := make([]string, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Type)
	}
	return out
}

func TestCheckoutValidationLeavesEverythingUntouched(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "elchef")
	before := f.cart.Items()
	stored, _, err := f.storage.Get(ctx, "cart_gastronomia_default")
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, checkout.OrderContext{
		OrderType:    "direccion",
		Address:      "San Martín 100",
		DeliveryName: "Ana",
	})

	var ve *checkout.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "contact_phone", ve.Field)
	assert.Equal(t, "Por favor, ingresa el teléfono de contacto.", ve.Message)
	assert.Empty(t, f.submitter.Calls())
	assert.Equal(t, before, f.cart.Items())
	assert.Equal(t, 3, f.cart.Count())
	after, _, err := f.storage.Get(ctx, "cart_gastronomia_default")
	require.NoError(t, err)
	assert.Equal(t, stored, after)
	assert.Empty(t, f.events.Events())
}

func TestCheckoutKeepsItemAddedWhileRunning(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "elchef")

	addLate := event.PublisherFunc(func(e event.Event) {
		if e.Type == "checkout.open_link" {
			f.cart.Add(ctx, "late", "Empanada", 300, "", "")
		}
	})
	svc := checkout.NewService(checkout.ServiceOptions{
		Cart:      f.cart,
		Submitter: f.submitter,
		Storage:   f.storage,
		Settings:  checkout.HolderSettings("elchef", "gastronomia", f.config),
		Publisher: event.Multi{f.events, addLate},
		Logger:    zap.NewNop(),
	})

	res, err := svc.Checkout(ctx, checkout.OrderContext{OrderType: "mesa", TableNumber: "2"})
	require.NoError(t, err)
	<-res.Submitted

	calls := f.submitter.Calls()
	require.Len(t, calls, 1)
	ids := make([]string, 0, len(calls[0].Items))
	for _, it := range calls[0].Items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"p1", "p2"}, ids, "only the items present at checkout are ordered")

	items := f.cart.Items()
	require.Len(t, items, 1, "the late item stays in the cart")
	assert.Equal(t, "late", items[0].ID)

	stored, _, err := f.storage.Get(ctx, "cart_gastronomia_default")
	require.NoError(t, err)
	assert.Contains(t, stored, `"late"`)
	assert.NotContains(t, stored, `"p1"`)

	changed := f.events.OfType("cart.changed")
	last := changed[len(changed)-1].Payload.(cart.Changed)
	assert.Equal(t, 1, last.Count)
}

func TestCheckoutEmptyCartIsRejectedFirst(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "elchef")
	f.cart.Clear(ctx)

	_, err := f.svc.Checkout(ctx, checkout.OrderContext{OrderType: "mesa"})
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.True(t, checkout.IsValidationError(err))
}

func TestValidateRules(t *testing.T) {
	cases := []struct {
		name  string
		oc    checkout.OrderContext
		field string
	}{
		{"table needs number", checkout.OrderContext{OrderType: "mesa"}, "table_number"},
		{"delivery needs address", checkout.OrderContext{OrderType: "direccion", ContactPhone: "1", DeliveryName: "A"}, "address"},
		{"delivery needs name", checkout.OrderContext{OrderType: "direccion", Address: "x", ContactPhone: "1"}, "delivery_name"},
		{"wait needs name", checkout.OrderContext{OrderType: "espera", WaitPhone: "1"}, "wait_name"},
		{"wait needs phone", checkout.OrderContext{OrderType: "espera", WaitName: "A"}, "wait_phone"},
		{"unknown type", checkout.OrderContext{OrderType: "drone"}, "order_type"},
		{"none needs nothing", checkout.OrderContext{OrderType: "none"}, ""},
		{"blank is missing", checkout.OrderContext{OrderType: "mesa", TableNumber: "   "}, "table_number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.oc.Normalize().Validate()
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *checkout.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestCheckoutSequence(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "gastro1")
	f.submitter.release = make(chan struct{})

	res, err := f.svc.Checkout(ctx, checkout.OrderContext{OrderType: "mesa", TableNumber: "5", Notes: "Rápido"})
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"checkout.open_link", "cart.changed", "cart.overlay_closed"},
		eventTypes(f.events.Events()))
	open := f.events.OfType("checkout.open_link")[0].Payload.(checkout.OpenLink)
	assert.Equal(t, res.Order.URL, open.URL)
	assert.Zero(t, f.cart.Count())

	close(f.submitter.release)
	sub := <-res.Submitted
	require.NoError(t, sub.Err)
	assert.Equal(t, "42", sub.OrderID)

	calls := f.submitter.Calls()
	require.Len(t, calls, 1)
	p := calls[0]
	assert.Equal(t, "gastronomia-local1", p.TenantSlug)
	assert.Equal(t, "mesa", p.OrderType)
	assert.Equal(t, "5", p.TableNumber)
	assert.Equal(t, backend.Address{}, p.Address)
	assert.Equal(t, "Rápido", p.OrderNotes)
	assert.Equal(t, []backend.PayloadItem{
		{ID: "p1", Name: "Pizza", Price: 1000, Quantity: 2},
		{ID: "p2", Name: "Flan", Price: 500, Quantity: 1, Notes: "sin crema"},
	}, p.Items)

	id, ok, _ := f.storage.Get(ctx, "last_order_id_gastronomia-local1")
	require.True(t, ok)
	assert.Equal(t, "42", id)
	status, _, _ := f.storage.Get(ctx, "last_viewed_status_gastronomia-local1")
	assert.Equal(t, "pendiente", status)

	submitted := f.events.OfType("checkout.order_submitted")
	require.Len(t, submitted, 1)
	assert.Equal(t, "42", submitted[0].Payload.(checkout.Submitted).OrderID)
}

func TestCheckoutDeliveryPayload(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "elchef")

	res, err := f.svc.Checkout(ctx, checkout.OrderContext{
		OrderType:    "direccion",
		Address:      "San Martín 100",
		ContactPhone: "2615550000",
		DeliveryName: "Ana",
		WaitName:     "ignored",
	})
	require.NoError(t, err)
	<-res.Submitted

	p := f.submitter.Calls()[0]
	assert.Equal(t, "elchef", p.TenantSlug)
	assert.Equal(t, backend.Address{Address: "San Martín 100"}, p.Address)
	assert.Equal(t, "2615550000", p.CustomerPhone)
	assert.Equal(t, "Ana", p.CustomerName)
	assert.Empty(t, p.TableNumber)
}

func TestCheckoutWhatsAppDisabledStillSubmits(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "elchef")
	off := false
	cfg := tenant.Config{}
	cfg.Checkout.WhatsAppEnabled = &off
	f.config.Set(cfg)

	res, err := f.svc.Checkout(ctx, checkout.OrderContext{OrderType: "mesa", TableNumber: "1"})
	require.NoError(t, err)
	<-res.Submitted

	assert.Empty(t, f.events.OfType("checkout.open_link"))
	assert.Len(t, f.submitter.Calls(), 1)
}

func TestCheckoutSubmitFailureAlertsButKeepsGoing(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "elchef")
	f.submitter.submitFn = func(backend.OrderPayload) (*backend.SubmitResult, error) {
		return nil, errors.New("connection refused")
	}

	res, err := f.svc.Checkout(ctx, checkout.OrderContext{OrderType: "mesa", TableNumber: "1"})
	require.NoError(t, err)
	sub := <-res.Submitted
	assert.Error(t, sub.Err)

	alerts := f.events.OfType("alert")
	require.Len(t, alerts, 1)
	assert.Equal(t, checkout.SubmitFailedMessage, alerts[0].Payload.(checkout.Alert).Message)
	assert.Len(t, f.events.OfType("checkout.open_link"), 1, "the chat is not undone")
	assert.Zero(t, f.cart.Count())

	_, ok, _ := f.storage.Get(ctx, "last_order_id_elchef")
	assert.False(t, ok)
}

func TestCheckoutDefaultOrderType(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, "elchef")
	cfg := tenant.Config{}
	cfg.Checkout.Mode = "whatsapp"
	f.config.Set(cfg)

	res, err := f.svc.Checkout(ctx, checkout.OrderContext{})
	require.NoError(t, err)
	<-res.Submitted
	assert.Equal(t, "none", f.submitter.Calls()[0].OrderType)
}
