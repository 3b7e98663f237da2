package orderstatus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/backend"
	"github.com/danielandresolateseguel/server1/internal/clock"
	"github.com/danielandresolateseguel/server1/internal/enum"
	"github.com/danielandresolateseguel/server1/internal/event"
	"github.com/danielandresolateseguel/server1/internal/storage"
	"github.com/danielandresolateseguel/server1/internal/tenant"
)

// State of the status modal.
type State int

const (
	StateClosed State = iota
	StateLoading
	StateDisplaying
	StateError
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateLoading:
		return "loading"
	case StateDisplaying:
		return "displaying"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{StateClosed, StateLoading, StateDisplaying, StateError} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// Messages shown in the Error state.
const (
	MsgNoRecentOrder  = "No tienes pedidos recientes registrados en este dispositivo."
	MsgConnection     = "No se pudo conectar con el sistema de pedidos. Intenta nuevamente."
	MsgBadResponse    = "Error en el formato de respuesta del pedido."
	msgNotFoundPrefix = "No se encontró el pedido #"
)

// Default timer periods.
const (
	DefaultPollInterval       = 5 * time.Second
	DefaultToggleInterval     = 5 * time.Second
	DefaultBackgroundInterval = 30 * time.Second
	DefaultBackgroundDelay    = 1 * time.Second
	DefaultFetchTimeout       = 15 * time.Second
)

// Fetcher reads orders and tenant config. *backend.Client implements it.
type Fetcher interface {
	GetOrder(ctx context.Context, id string) (*backend.OrderDetail, error)
	GetConfig(ctx context.Context, slug string) (*tenant.Config, error)
}

// Snapshot is the poller state published with status events.
type Snapshot struct {
	State       State  `json:"state"`
	View        *View  `json:"view,omitempty"`
	Error       string `json:"error,omitempty"`
	Badge       bool   `json:"badge"`
	PaymentMode bool   `json:"payment_mode"`
}

// Badge is the payload of status.badge.
type Badge struct {
	Visible bool `json:"visible"`
}

// Options wires a Poller. Zero durations take the defaults.
type Options struct {
	Fetcher   Fetcher
	Storage   storage.Store
	Slug      string
	Clock     clock.Clock
	Publisher event.Publisher
	Logger    *zap.Logger
	Location  *time.Location

	PollInterval       time.Duration
	ToggleInterval     time.Duration
	BackgroundInterval time.Duration
	BackgroundDelay    time.Duration
	FetchTimeout       time.Duration
}

// Poller follows the last order of one tenant on one device.
//
// The modal timers (refresh and CTA toggle) live between Open and Close.
// The background checker lives between StartBackground and Stop and is
// independent of the modal. Every timer is stopped before it is started
// again, so there is never more than one of each.
type Poller struct {
	fetcher Fetcher
	storage storage.Store
	slug    string
	clock   clock.Clock
	pub     event.Publisher
	log     *zap.Logger
	loc     *time.Location

	pollEvery, toggleEvery, bgEvery, bgDelay, timeout time.Duration

	mu               sync.Mutex
	state            State
	session          uint64
	view             *View
	errMsg           string
	config           tenant.Config
	paymentMode      bool
	celebrationShown bool
	badge            bool

	pollTimer   *clock.Interval
	toggleTimer *clock.Interval
	bgTimer     *clock.Interval
	bgFirst     clock.Timer
}

func NewPoller(opts Options) *Poller {
	p := &Poller{
		fetcher:     opts.Fetcher,
		storage:     opts.Storage,
		slug:        opts.Slug,
		clock:       opts.Clock,
		pub:         opts.Publisher,
		log:         opts.Logger,
		loc:         opts.Location,
		pollEvery:   opts.PollInterval,
		toggleEvery: opts.ToggleInterval,
		bgEvery:     opts.BackgroundInterval,
		bgDelay:     opts.BackgroundDelay,
		timeout:     opts.FetchTimeout,
	}
	if p.clock == nil {
		p.clock = clock.Real()
	}
	if p.pub == nil {
		p.pub = event.Discard
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.loc == nil {
		p.loc = DefaultLocation()
	}
	if p.pollEvery <= 0 {
		p.pollEvery = DefaultPollInterval
	}
	if p.toggleEvery <= 0 {
		p.toggleEvery = DefaultToggleInterval
	}
	if p.bgEvery <= 0 {
		p.bgEvery = DefaultBackgroundInterval
	}
	if p.bgDelay <= 0 {
		p.bgDelay = DefaultBackgroundDelay
	}
	if p.timeout <= 0 {
		p.timeout = DefaultFetchTimeout
	}
	return p
}

// Open shows the modal: it starts the modal timers, then loads the last
// order and the tenant config in parallel. It returns once the modal
// shows the order or an error.
func (p *Poller) Open(ctx context.Context) Snapshot {
	p.mu.Lock()
	p.session++
	session := p.session
	p.celebrationShown = false
	p.startModalTimersLocked()

	orderID, err := p.lastOrderID(ctx)
	if err != nil {
		p.log.Error("reading last order id", zap.String("slug", p.slug), zap.Error(err))
	}
	if orderID == "" {
		p.failLocked(MsgNoRecentOrder)
		snap := p.snapshotLocked()
		p.mu.Unlock()
		return snap
	}
	p.state = StateLoading
	p.errMsg = ""
	p.publishStateLocked()
	p.mu.Unlock()

	detail, cfg, err := p.load(ctx, orderID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if session != p.session {
		// Closed or reopened while loading.
		return p.snapshotLocked()
	}
	p.config = cfg
	switch {
	case errors.Is(err, backend.ErrOrderNotFound):
		p.failLocked(msgNotFoundPrefix + orderID)
	case err != nil:
		p.log.Error("fetching order status", zap.String("order_id", orderID), zap.Error(err))
		p.failLocked(MsgConnection)
	case detail.Order == nil:
		p.failLocked(MsgBadResponse)
	default:
		p.markViewedLocked(ctx, detail.Order.Status)
		p.renderLocked(detail)
	}
	return p.snapshotLocked()
}

// Close hides the modal and stops the modal timers. The background
// checker keeps running. Results of fetches still in flight are dropped.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopModalTimersLocked()
	p.session++
	p.state = StateClosed
	p.publishStateLocked()
}

// StartBackground runs CheckBackground after the initial delay and then
// periodically, until Stop.
func (p *Poller) StartBackground() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopBackgroundLocked()
	p.bgFirst = p.clock.AfterFunc(p.bgDelay, p.tick("background check", p.CheckBackground))
	p.bgTimer = clock.Every(p.clock, p.bgEvery, p.tick("background check", p.CheckBackground))
}

// Stop cancels every timer. The poller can be opened again afterwards.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopModalTimersLocked()
	p.stopBackgroundLocked()
	p.session++
	p.state = StateClosed
}

// CheckBackground fetches the last order and raises the badge when its
// status differs from the last one the customer saw. Failures are
// ignored; the next check retries.
func (p *Poller) CheckBackground(ctx context.Context) {
	orderID, err := p.lastOrderID(ctx)
	if err != nil || orderID == "" {
		return
	}
	detail, err := p.fetchOrder(ctx, orderID)
	if err != nil {
		p.log.Debug("background check skipped", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	if detail.Order == nil {
		return
	}
	lastViewed, _, err := p.storage.Get(ctx, storage.LastViewedStatusKey(p.slug))
	if err != nil {
		p.log.Debug("reading last viewed status", zap.Error(err))
		return
	}
	if detail.Order.Status != lastViewed {
		p.mu.Lock()
		p.setBadgeLocked(true)
		p.mu.Unlock()
	}
}

// Refresh silently re-fetches the order while the modal is open. The
// customer is assumed to see the new status. Failures keep the stale view.
func (p *Poller) Refresh(ctx context.Context) {
	p.mu.Lock()
	session := p.session
	open := p.state != StateClosed
	p.mu.Unlock()
	if !open {
		return
	}

	orderID, err := p.lastOrderID(ctx)
	if err != nil || orderID == "" {
		return
	}
	detail, err := p.fetchOrder(ctx, orderID)
	if err != nil {
		p.log.Debug("silent update skipped", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	if detail.Order == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if session != p.session {
		return
	}
	p.markViewedLocked(ctx, detail.Order.Status)
	p.renderLocked(detail)
}

// Toggle flips the call-to-action between chat and pay.
func (p *Poller) Toggle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toggleLocked()
}

// toggleIn is the toggle timer's tick. A tick that was already running
// when its session was closed must not flip the next session's CTA.
func (p *Poller) toggleIn(session uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if session != p.session {
		return
	}
	p.toggleLocked()
}

func (p *Poller) toggleLocked() {
	if p.state == StateClosed {
		return
	}
	p.paymentMode = !p.paymentMode
	if p.view == nil {
		return
	}
	p.view.CTA = NewCTA(p.config.WhatsAppNumber(), p.view.OrderID, p.paymentMode)
	p.pub.Publish(event.Event{Type: enum.EventStatusCTA, Payload: p.view.CTA})
}

// Snapshot returns the current modal state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) startModalTimersLocked() {
	p.stopModalTimersLocked()
	session := p.session
	p.pollTimer = clock.Every(p.clock, p.pollEvery, p.tick("status refresh", p.Refresh))
	p.toggleTimer = clock.Every(p.clock, p.toggleEvery, p.tick("cta toggle", func(context.Context) { p.toggleIn(session) }))
}

func (p *Poller) stopModalTimersLocked() {
	p.pollTimer.Stop()
	p.pollTimer = nil
	p.toggleTimer.Stop()
	p.toggleTimer = nil
	p.paymentMode = false
}

func (p *Poller) stopBackgroundLocked() {
	if p.bgFirst != nil {
		p.bgFirst.Stop()
		p.bgFirst = nil
	}
	p.bgTimer.Stop()
	p.bgTimer = nil
}

// tick adapts f to a timer callback. A panicking tick is logged and does
// not stop later ticks.
func (p *Poller) tick(name string, f func(context.Context)) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("timer callback panicked", zap.String("timer", name), zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		f(ctx)
	}
}

func (p *Poller) lastOrderID(ctx context.Context) (string, error) {
	id, _, err := p.storage.Get(ctx, storage.LastOrderIDKey(p.slug))
	return id, err
}

func (p *Poller) fetchOrder(ctx context.Context, id string) (*backend.OrderDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.fetcher.GetOrder(ctx, id)
}

// load fetches the order and the tenant config concurrently. A config
// failure yields an empty config.
func (p *Poller) load(ctx context.Context, orderID string) (*backend.OrderDetail, tenant.Config, error) {
	var (
		wg       sync.WaitGroup
		detail   *backend.OrderDetail
		orderErr error
		cfg      tenant.Config
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		detail, orderErr = p.fetchOrder(ctx, orderID)
	}()
	go func() {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		c, err := p.fetcher.GetConfig(cctx, p.slug)
		if err != nil {
			p.log.Debug("tenant config unavailable", zap.String("slug", p.slug), zap.Error(err))
			return
		}
		if c != nil {
			cfg = *c
		}
	}()
	wg.Wait()
	return detail, cfg, orderErr
}

func (p *Poller) markViewedLocked(ctx context.Context, status string) {
	if err := p.storage.Set(ctx, storage.LastViewedStatusKey(p.slug), status); err != nil {
		p.log.Error("saving last viewed status", zap.Error(err))
	}
	p.setBadgeLocked(false)
}

func (p *Poller) setBadgeLocked(visible bool) {
	if p.badge == visible {
		return
	}
	p.badge = visible
	p.pub.Publish(event.Event{Type: enum.EventStatusBadge, Payload: Badge{Visible: visible}})
}

func (p *Poller) renderLocked(detail *backend.OrderDetail) {
	v := BuildView(*detail.Order, detail.Items, p.config, p.paymentMode, p.loc)
	p.view = &v
	p.state = StateDisplaying
	p.errMsg = ""

	if v.Status == enum.StatusDelivered && !p.celebrationShown {
		p.celebrationShown = true
		p.pub.Publish(event.Event{Type: enum.EventCelebrate, Payload: v.OrderID})
	}
	p.publishStateLocked()
}

func (p *Poller) failLocked(msg string) {
	p.state = StateError
	p.errMsg = msg
	p.view = nil
	p.publishStateLocked()
}

func (p *Poller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:       p.state,
		Error:       p.errMsg,
		Badge:       p.badge,
		PaymentMode: p.paymentMode,
	}
	if p.view != nil {
		v := *p.view
		s.View = &v
	}
	return s
}

func (p *Poller) publishStateLocked() {
	p.pub.Publish(event.Event{Type: enum.EventStatusChanged, Payload: p.snapshotLocked()})
}
