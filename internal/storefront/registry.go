package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/clock"
	"github.com/danielandresolateseguel/server1/internal/event"
)

var ErrNotFound = errors.New("storefront not found")

// Eviction defaults.
const (
	DefaultIdleTimeout     = 30 * time.Minute
	DefaultDisconnectGrace = 2 * time.Minute
	DefaultSweepInterval   = time.Minute
)

// PublisherFactory returns the event sink for a new storefront id.
type PublisherFactory func(id string) event.Publisher

// Eviction decides when an unused storefront is closed.
type Eviction struct {
	// IdleTimeout closes a storefront with no request and no connected
	// tab for this long.
	IdleTimeout time.Duration

	// DisconnectGrace closes a storefront this long after its last tab
	// disconnected, unless it is used again meanwhile.
	DisconnectGrace time.Duration

	// MaxAge closes a storefront this long after it was opened, whatever
	// its activity. Zero means no limit.
	MaxAge time.Duration

	SweepInterval time.Duration

	// Connected reports whether a tab is attached to the storefront.
	Connected func(id string) bool
}

type entry struct {
	sf             *Storefront
	opened         time.Time
	lastSeen       time.Time
	disconnectedAt time.Time
}

// Registry keeps the open storefronts of the process.
type Registry struct {
	deps      Deps
	publisher PublisherFactory
	clock     clock.Clock

	mu       sync.Mutex
	entries  map[string]*entry
	eviction Eviction
	sweeper  *clock.Interval
}

func NewRegistry(deps Deps, publisher PublisherFactory) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = func(string) event.Publisher { return event.Discard }
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Registry{
		deps:      deps,
		publisher: publisher,
		clock:     clk,
		entries:   make(map[string]*entry),
	}
}

// Create opens a storefront for page under a fresh id.
func (r *Registry) Create(ctx context.Context, page Page) *Storefront {
	id := uuid.NewString()
	sf := New(ctx, id, page, r.deps, r.publisher(id))

	now := r.clock.Now()
	r.mu.Lock()
	r.entries[id] = &entry{sf: sf, opened: now, lastSeen: now}
	r.mu.Unlock()

	r.deps.Logger.Info("storefront opened",
		zap.String("storefront", id),
		zap.String("tenant_slug", sf.Slug),
		zap.String("cart_key", page.CartStorageKey()),
	)
	return sf
}

// Get returns an open storefront and marks it as used.
func (r *Registry) Get(id string) (*Storefront, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = r.clock.Now()
	e.disconnectedAt = time.Time{}
	return e.sf, nil
}

// Remove closes and forgets a storefront.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.sf.Close()
	r.deps.Logger.Info("storefront closed", zap.String("storefront", id))
	return nil
}

// Len returns the number of open storefronts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Disconnected records that the last tab of a storefront went away. The
// storefront is closed after the disconnect grace unless used again.
func (r *Registry) Disconnected(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.disconnectedAt = r.clock.Now()
	}
}

// StartEviction sweeps the registry periodically and closes storefronts
// that are no longer used. Calling it again replaces the settings.
func (r *Registry) StartEviction(ev Eviction) {
	if ev.IdleTimeout <= 0 {
		ev.IdleTimeout = DefaultIdleTimeout
	}
	if ev.DisconnectGrace <= 0 {
		ev.DisconnectGrace = DefaultDisconnectGrace
	}
	if ev.SweepInterval <= 0 {
		ev.SweepInterval = DefaultSweepInterval
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeper.Stop()
	r.eviction = ev
	r.sweeper = clock.Every(r.clock, ev.SweepInterval, r.Sweep)
}

// Sweep closes every storefront that is past its idle timeout, its
// disconnect grace or its max age. Storefronts with a connected tab only
// expire by age.
func (r *Registry) Sweep() {
	r.mu.Lock()
	ev := r.eviction
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		connected := ev.Connected != nil && ev.Connected(id)
		if reason := r.expire(id, connected, ev); reason != "" {
			r.deps.Logger.Info("storefront evicted", zap.String("storefront", id), zap.String("reason", reason))
		}
	}
}

// expire removes id if it is stale and returns why, or "" if it stays.
func (r *Registry) expire(id string, connected bool, ev Eviction) string {
	now := r.clock.Now()

	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return ""
	}
	var reason string
	switch {
	case ev.MaxAge > 0 && now.Sub(e.opened) >= ev.MaxAge:
		reason = "max age"
	case connected:
		e.lastSeen = now
		e.disconnectedAt = time.Time{}
	case !e.disconnectedAt.IsZero() && now.Sub(e.disconnectedAt) >= ev.DisconnectGrace:
		reason = "disconnected"
	case ev.IdleTimeout > 0 && now.Sub(e.lastSeen) >= ev.IdleTimeout:
		reason = "idle"
	}
	if reason != "" {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if reason != "" {
		e.sf.Close()
	}
	return reason
}

// CloseAll stops eviction and every storefront. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.sweeper.Stop()
	r.sweeper = nil
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range entries {
		e.sf.Close()
	}
}
