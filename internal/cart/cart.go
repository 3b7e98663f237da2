// Package cart is the storefront cart: an ordered list of line items kept
// in local storage and re-persisted after every mutation.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/clock"
	"github.com/danielandresolateseguel/server1/internal/enum"
	"github.com/danielandresolateseguel/server1/internal/event"
	"github.com/danielandresolateseguel/server1/internal/money"
	"github.com/danielandresolateseguel/server1/internal/storage"
)

// DefaultName is used for products added without a name.
const DefaultName = "Producto"

// ShippingFunc returns the delivery cost currently configured.
type ShippingFunc func() int64

// Changed is the payload of a cart.changed event.
type Changed struct {
	Items         []LineItem `json:"items"`
	Count         int        `json:"count"`
	OrderType     string     `json:"order_type"`
	Totals        Totals     `json:"totals"`
	Announcements []string   `json:"announcements"`
}

// Store owns the cart of one storefront page. All methods are safe for
// concurrent use; each mutation persists before it returns.
type Store struct {
	mu        sync.Mutex
	items     []LineItem
	orderType string
	selected  bool

	storage   storage.Store
	key       string
	legacyKey string
	shipping  ShippingFunc
	clock     clock.Clock
	pub       event.Publisher
	log       *zap.Logger
}

// Options wires a Store.
type Options struct {
	Storage   storage.Store
	Key       string
	LegacyKey string
	Shipping  ShippingFunc
	Clock     clock.Clock
	Publisher event.Publisher
	Logger    *zap.Logger
}

// NewStore creates an empty Store. Call Load to read the persisted cart.
func NewStore(opts Options) *Store {
	s := &Store{
		orderType: enum.OrderTypeTable,
		storage:   opts.Storage,
		key:       opts.Key,
		legacyKey: opts.LegacyKey,
		shipping:  opts.Shipping,
		clock:     opts.Clock,
		pub:       opts.Publisher,
		log:       opts.Logger,
	}
	if s.legacyKey == "" {
		s.legacyKey = s.key
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.pub == nil {
		s.pub = event.Discard
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.shipping == nil {
		s.shipping = func() int64 { return 0 }
	}
	return s
}

// Load reads the persisted cart, migrating it from the legacy key first if
// needed. Unreadable data resets the cart to empty; Load never fails.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	raw, err := storage.LoadWithMigration(ctx, s.storage, s.key, s.legacyKey, s.log)
	if err != nil {
		s.log.Error("reading cart", zap.String("key", s.key), zap.Error(err))
	} else if raw != "" {
		var items []LineItem
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			s.log.Error("parsing cart", zap.String("key", s.key), zap.Error(err))
		} else {
			s.items = items
		}
	}
	s.notifyLocked()
}

// Add puts one unit of a product in the cart. A product already in the
// cart gets its quantity incremented; missing name, image or price are
// filled in and notes are appended. Invalid prices are ignored.
func (s *Store) Add(ctx context.Context, id, name string, price float64, image, notes string) {
	if id == "" {
		id = fmt.Sprintf("auto-%d", s.clock.Now().UnixMilli())
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	if !validPrice(price) {
		s.log.Warn("invalid price", zap.String("id", id), zap.String("name", name), zap.Float64("price", price))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(id); i >= 0 {
		it := &s.items[i]
		it.Quantity++
		if it.Image == "" && image != "" {
			it.Image = image
		}
		if it.Name == "" {
			it.Name = name
		}
		if !validPrice(it.Price) {
			it.Price = price
		}
		if notes != "" {
			if it.Notes != "" {
				it.Notes += ", " + notes
			} else {
				it.Notes = notes
			}
		}
	} else {
		s.items = append(s.items, LineItem{
			ID:       id,
			Name:     name,
			Price:    price,
			Image:    image,
			Quantity: 1,
			Notes:    notes,
		})
	}
	s.saveLocked(ctx)
	s.notifyLocked("Producto agregado: " + name)
}

// Increment adds one unit to an existing line item.
func (s *Store) Increment(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.items[i].Quantity++
	s.saveLocked(ctx)
	s.notifyLocked()
	return true
}

// Decrement removes one unit; the last unit removes the line item.
func (s *Store) Decrement(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	if s.items[i].Quantity > 1 {
		s.items[i].Quantity--
		s.saveLocked(ctx)
		s.notifyLocked()
		return true
	}
	name := s.items[i].Name
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.saveLocked(ctx)
	s.notifyLocked("Producto eliminado: " + name)
	return true
}

// Remove drops a line item regardless of quantity.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	name := s.items[i].Name
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.saveLocked(ctx)
	s.notifyLocked("Producto eliminado: " + name)
	return true
}

// SetNotes replaces the notes of a line item.
func (s *Store) SetNotes(ctx context.Context, id, notes string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.items[i].Notes = notes
	s.saveLocked(ctx)
	s.notifyLocked()
	return true
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.saveLocked(ctx)
	s.notifyLocked("Carrito vaciado. Total $0 ARS")
}

// Drain hands a copy of the items to take and, if take accepts them,
// empties and persists the cart in the same critical section, so nothing
// added concurrently is lost or sent twice. take runs under the cart lock
// and must not call back into the Store. No event is published; call
// NotifyDrained once the caller's own events are out.
func (s *Store) Drain(ctx context.Context, take func(items []LineItem) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := take(append([]LineItem(nil), s.items...)); err != nil {
		return err
	}
	s.items = nil
	s.saveLocked(ctx)
	return nil
}

// NotifyDrained publishes the cart after a Drain. Items added since then
// are kept and reported.
func (s *Store) NotifyDrained() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		s.notifyLocked("Carrito vaciado. Total $0 ARS")
		return
	}
	s.notifyLocked()
}

// SetOrderType records the customer's order type choice. Displayed
// totals follow it.
func (s *Store) SetOrderType(orderType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderType = orderType
	s.selected = true
	s.notifyLocked()
}

// OrderType returns the order type used for displayed totals: the chosen
// one, or a table order while nothing was chosen.
func (s *Store) OrderType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderType
}

// SelectedOrderType returns the customer's choice, or "" if none was made.
func (s *Store) SelectedOrderType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selected {
		return ""
	}
	return s.orderType
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LineItem(nil), s.items...)
}

// Count is the number of units in the cart.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Count(s.items)
}

// ComputeTotals prices the cart for orderType.
func (s *Store) ComputeTotals(orderType string, shipping func() int64) Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeTotals(s.items, orderType, shipping)
}

// Snapshot returns the same payload a cart.changed event carries, without
// announcements.
func (s *Store) Snapshot() Changed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(nil)
}

func (s *Store) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) saveLocked(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		s.log.Error("encoding cart", zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, s.key, string(b)); err != nil {
		s.log.Error("saving cart", zap.String("key", s.key), zap.Error(err))
	}
}

func (s *Store) snapshotLocked(announcements []string) Changed {
	items := append([]LineItem{}, s.items...)
	return Changed{
		Items:         items,
		Count:         Count(items),
		OrderType:     s.orderType,
		Totals:        ComputeTotals(items, s.orderType, s.shipping),
		Announcements: announcements,
	}
}

// notifyLocked publishes cart.changed. The mutation announcement, if any,
// comes first, followed by the running total.
func (s *Store) notifyLocked(announcements ...string) {
	snap := s.snapshotLocked(nil)
	if len(snap.Items) == 0 {
		announcements = append(announcements, "Carrito vacío. Total $0 ARS")
	} else {
		announcements = append(announcements, "Total actualizado: "+money.ARS(snap.Totals.Total))
	}
	snap.Announcements = announcements
	s.pub.Publish(event.Event{Type: enum.EventCartChanged, Payload: snap})
}
