package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/backend"
	"github.com/danielandresolateseguel/server1/internal/cart"
	"github.com/danielandresolateseguel/server1/internal/enum"
	"github.com/danielandresolateseguel/server1/internal/event"
	"github.com/danielandresolateseguel/server1/internal/storage"
	"github.com/danielandresolateseguel/server1/internal/tenant"
)

// SubmitFailedMessage is shown when the orders API did not record the
// order. The chat has already been opened by then.
const SubmitFailedMessage = "Hubo un error al registrar el pedido en el sistema. Por favor, avisa al personal."

// OrderSubmitter posts orders. *backend.Client implements it.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, payload backend.OrderPayload) (*backend.SubmitResult, error)
}

// Event payloads.
type (
	OpenLink struct {
		URL string `json:"url"`
	}
	Alert struct {
		Message string `json:"message"`
	}
	Submitted struct {
		OrderID string          `json:"order_id"`
		Total   decimal.Decimal `json:"total"`
	}
)

// Submission is the outcome of the background order submission.
type Submission struct {
	OrderID string
	Total   decimal.Decimal
	Err     error
}

// Result is returned by Checkout once the synchronous steps are done.
// Submitted yields exactly one Submission and is then closed.
type Result struct {
	Order     *Order
	Submitted <-chan Submission
}

// Service runs checkout for one storefront.
type Service struct {
	cart      *cart.Store
	submitter OrderSubmitter
	storage   storage.Store
	settings  func() Settings
	pub       event.Publisher
	log       *zap.Logger
	timeout   time.Duration
}

// ServiceOptions wires a Service. Settings is read on every checkout so
// config reloads apply.
type ServiceOptions struct {
	Cart      *cart.Store
	Submitter OrderSubmitter
	Storage   storage.Store
	Settings  func() Settings
	Publisher event.Publisher
	Logger    *zap.Logger

	// SubmitTimeout bounds the background submission. Zero means none.
	SubmitTimeout time.Duration
}

func NewService(opts ServiceOptions) *Service {
	s := &Service{
		cart:      opts.Cart,
		submitter: opts.Submitter,
		storage:   opts.Storage,
		settings:  opts.Settings,
		pub:       opts.Publisher,
		log:       opts.Logger,
		timeout:   opts.SubmitTimeout,
	}
	if s.pub == nil {
		s.pub = event.Discard
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Checkout validates the form, opens the chat, submits the order in the
// background, clears the cart and closes the cart overlay, in that order.
// The ordered items are taken out of the cart atomically; an item added
// while checkout runs stays in the cart. A validation error leaves
// everything untouched.
func (s *Service) Checkout(ctx context.Context, oc OrderContext) (*Result, error) {
	st := s.settings()
	var order *Order
	err := s.cart.Drain(ctx, func(items []cart.LineItem) error {
		var err error
		order, err = Build(items, oc, st)
		return err
	})
	if err != nil {
		return nil, err
	}

	if order.URL != "" {
		s.pub.Publish(event.Event{Type: enum.EventOpenLink, Payload: OpenLink{URL: order.URL}})
	}

	done := make(chan Submission, 1)
	go s.submit(context.WithoutCancel(ctx), order.Payload, done)

	s.cart.NotifyDrained()
	s.pub.Publish(event.Event{Type: enum.EventCartOverlayClose})

	return &Result{Order: order, Submitted: done}, nil
}

func (s *Service) submit(ctx context.Context, payload backend.OrderPayload, done chan<- Submission) {
	defer close(done)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.submitter.SubmitOrder(ctx, payload)
	if err != nil {
		s.log.Error("submitting order", zap.String("tenant_slug", payload.TenantSlug), zap.Error(err))
		s.pub.Publish(event.Event{Type: enum.EventAlert, Payload: Alert{Message: SubmitFailedMessage}})
		done <- Submission{Err: err}
		return
	}

	id := res.OrderID.String()
	slug := payload.TenantSlug
	if err := s.storage.Set(ctx, storage.LastOrderIDKey(slug), id); err != nil {
		s.log.Error("saving last order id", zap.String("order_id", id), zap.Error(err))
	}
	if err := s.storage.Set(ctx, storage.LastViewedStatusKey(slug), enum.StatusPending); err != nil {
		s.log.Error("resetting last viewed status", zap.String("order_id", id), zap.Error(err))
	}

	s.pub.Publish(event.Event{Type: enum.EventOrderSubmitted, Payload: Submitted{OrderID: id, Total: res.Total}})
	done <- Submission{OrderID: id, Total: res.Total}
}

// HolderSettings reads the tenant config from h on every call.
func HolderSettings(slug, category string, h *tenant.Holder) func() Settings {
	return func() Settings {
		return Settings{TenantSlug: slug, Category: category, Config: h.Current()}
	}
}
