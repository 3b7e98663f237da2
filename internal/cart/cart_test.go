package cart_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/cart"
	"github.com/danielandresolateseguel/server1/internal/clock"
	"github.com/danielandresolateseguel/server1/internal/event"
	"github.com/danielandresolateseguel/server1/internal/storage"
)

const cartKey = "cart_gastronomia_elchef"

type fixture struct {
	store   *cart.Store
	storage *storage.MemoryStore
	events  *event.Recorder
	clock   *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		storage: storage.NewMemoryStore(),
		events:  &event.Recorder{},
		clock:   clock.Fake(time.UnixMilli(1700000000000)),
	}
	f.store = cart.NewStore(cart.Options{
		Storage:   f.storage,
		Key:       cartKey,
		LegacyKey: "cart_gastronomia_v1",
		Shipping:  func() int64 { return 300 },
		Clock:     f.clock,
		Publisher: f.events,
		Logger:    zap.NewNop(),
	})
	return f
}

func (f *fixture) persisted(t *testing.T) []cart.LineItem {
	t.Helper()
	raw, ok, err := f.storage.Get(context.Background(), cartKey)
	require.NoError(t, err)
	require.True(t, ok, "cart was not persisted")
	var items []cart.LineItem
	require.NoError(t, json.Unmarshal([]byte(raw), &items))
	return items
}

func TestAddSameIDIncrementsQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.Add(ctx, "p1", "Pizza", 1000, "pizza.jpg", "")
	f.store.Add(ctx, "p1", "Pizza", 1000, "pizza.jpg", "")

	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, items, f.persisted(t))
}

func TestAddDoesNotOverwriteValidPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.Add(ctx, "p1", "Pizza", 1000, "", "")
	f.store.Add(ctx, "p1", "Pizza grande", 1500, "pizza.jpg", "")

	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1000.0, items[0].Price)
	assert.Equal(t, "Pizza", items[0].Name)
	assert.Equal(t, "pizza.jpg", items[0].Image, "missing image is backfilled")
}

func TestAddBackfillsInvalidStoredPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.storage.Set(ctx, cartKey, `[{"id":"p1","name":"","price":0,"quantity":1}]`))
	f.store.Load(ctx)

	f.store.Add(ctx, "p1", "Empanada", 450, "", "")

	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 450.0, items[0].Price)
	assert.Equal(t, "Empanada", items[0].Name)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestAddAppendsNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.Add(ctx, "p1", "Lomo", 5000, "", "sin sal")
	f.store.Add(ctx, "p1", "Lomo", 5000, "", "")
	f.store.Add(ctx, "p1", "Lomo", 5000, "", "bien cocido")

	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "sin sal, bien cocido", items[0].Notes)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestAddRejectsInvalidPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, price := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		assert.NotPanics(t, func() { f.store.Add(ctx, "p1", "Pizza", price, "", "") })
	}

	assert.Empty(t, f.store.Items())
	_, ok, _ := f.storage.Get(ctx, cartKey)
	assert.False(t, ok, "rejected adds must not persist")
	assert.Empty(t, f.events.Events())
}

func TestAddDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.Add(ctx, "", "  ", 100, "", "")

	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "auto-1700000000000", items[0].ID)
	assert.Equal(t, "Producto", items[0].Name)
}

func TestIncrementDecrementRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Add(ctx, "p1", "Pizza", 1000, "", "")
	f.store.Add(ctx, "p2", "Flan", 500, "", "")

	assert.True(t, f.store.Increment(ctx, "p1"))
	assert.Equal(t, 2, f.store.Items()[0].Quantity)

	assert.True(t, f.store.Decrement(ctx, "p1"))
	assert.Equal(t, 1, f.store.Items()[0].Quantity)

	assert.True(t, f.store.Decrement(ctx, "p1"), "last unit removes the line")
	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ID)

	f.store.Increment(ctx, "p2")
	assert.True(t, f.store.Remove(ctx, "p2"))
	assert.Empty(t, f.store.Items())
	assert.Empty(t, f.persisted(t))

	assert.False(t, f.store.Increment(ctx, "nope"))
	assert.False(t, f.store.Decrement(ctx, "nope"))
	assert.False(t, f.store.Remove(ctx, "nope"))
	assert.False(t, f.store.SetNotes(ctx, "nope", "x"))
}

func TestSetNotesOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Add(ctx, "p1", "Pizza", 1000, "", "con aceitunas")

	assert.True(t, f.store.SetNotes(ctx, "p1", "sin aceitunas"))
	assert.Equal(t, "sin aceitunas", f.persisted(t)[0].Notes)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Add(ctx, "p1", "Pizza", 1000, "", "")
	f.events.Reset()

	f.store.Clear(ctx)

	assert.Empty(t, f.store.Items())
	assert.Equal(t, []cart.LineItem{}, f.persisted(t))
	evs := f.events.OfType("cart.changed")
	require.Len(t, evs, 1)
	changed := evs[0].Payload.(cart.Changed)
	assert.Equal(t, []string{"Carrito vaciado. Total $0 ARS", "Carrito vacío. Total $0 ARS"}, changed.Announcements)
}

func TestDrain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Add(ctx, "p1", "Pizza", 1000, "", "")
	f.events.Reset()

	rejected := errors.New("rejected")
	err := f.store.Drain(ctx, func(items []cart.LineItem) error {
		require.Len(t, items, 1)
		return rejected
	})
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, 1, f.store.Count())
	assert.Len(t, f.persisted(t), 1)

	var taken []cart.LineItem
	require.NoError(t, f.store.Drain(ctx, func(items []cart.LineItem) error {
		taken = items
		return nil
	}))
	assert.Equal(t, "p1", taken[0].ID)
	assert.Empty(t, f.store.Items())
	assert.Equal(t, []cart.LineItem{}, f.persisted(t))
	assert.Empty(t, f.events.Events(), "drain publishes nothing by itself")

	f.store.Add(ctx, "p2", "Flan", 500, "", "")
	f.events.Reset()
	f.store.NotifyDrained()
	evs := f.events.OfType("cart.changed")
	require.Len(t, evs, 1)
	changed := evs[0].Payload.(cart.Changed)
	assert.Equal(t, 1, changed.Count)
	assert.Equal(t, []string{"Total actualizado: $550 ARS"}, changed.Announcements, "mesa adds the 10% tip")
}

func TestAnnouncements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.store.Add(ctx, "p1", "Pizza", 1000, "", "")

	evs := f.events.OfType("cart.changed")
	require.Len(t, evs, 1)
	changed := evs[0].Payload.(cart.Changed)
	assert.Equal(t, 1, changed.Count)
	// Default display order type is a table order, so the tip is included.
	assert.Equal(t, []string{"Producto agregado: Pizza", "Total actualizado: $1.100 ARS"}, changed.Announcements)

	f.store.Remove(ctx, "p1")
	evs = f.events.OfType("cart.changed")
	changed = evs[len(evs)-1].Payload.(cart.Changed)
	assert.Equal(t, "Producto eliminado: Pizza", changed.Announcements[0])
}

func TestLoadParseFailureResetsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.storage.Set(ctx, cartKey, `{not json`))

	assert.NotPanics(t, func() { f.store.Load(ctx) })
	assert.Empty(t, f.store.Items())
}

func TestLoadMigratesLegacyCartOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.storage.Set(ctx, "cart_gastronomia_v1", `[{"id":"p1","name":"Pizza","price":1000,"quantity":2}]`))

	f.store.Load(ctx)
	first := f.persisted(t)
	f.store.Load(ctx)
	second := f.persisted(t)

	assert.Equal(t, first, second)
	require.Len(t, f.store.Items(), 1)
	assert.Equal(t, 2, f.store.Items()[0].Quantity)
}

func TestComputeTotals(t *testing.T) {
	items := []cart.LineItem{
		{ID: "a", Price: 1000, Quantity: 2},
		{ID: "b", Price: 500, Quantity: 1},
	}

	table := cart.ComputeTotals(items, "mesa", func() int64 { return 300 })
	assert.Equal(t, cart.Totals{Subtotal: 2500, Shipping: 0, Tip: 250, Total: 2750, BeforeTip: 2500}, table)

	delivery := cart.ComputeTotals(items, "direccion", func() int64 { return 300 })
	assert.Equal(t, cart.Totals{Subtotal: 2500, Shipping: 300, Tip: 0, Total: 2800, BeforeTip: 2800}, delivery)

	wait := cart.ComputeTotals(items, "espera", func() int64 { return 300 })
	assert.Equal(t, int64(2500), wait.Total)
}

func TestComputeTotalsTruncatesLinesAndRoundsTip(t *testing.T) {
	items := []cart.LineItem{{ID: "a", Price: 999.5, Quantity: 3}}

	totals := cart.ComputeTotals(items, "mesa", nil)
	// 2998.5 truncates to 2998; the tip is round(299.85) = 300.
	assert.Equal(t, int64(2998), totals.Subtotal)
	assert.Equal(t, int64(300), totals.Tip)
	assert.Equal(t, int64(3298), totals.Total)
	assert.Equal(t, int64(999), items[0].UnitPrice())
	assert.Equal(t, int64(2998), items[0].Subtotal())
}

func TestStoreComputeTotalsAndOrderType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Add(ctx, "a", "A", 1000, "", "")
	f.store.Increment(ctx, "a")
	f.store.Add(ctx, "b", "B", 500, "", "")

	got := f.store.ComputeTotals("direccion", func() int64 { return 300 })
	assert.Equal(t, int64(2800), got.Total)
	assert.Equal(t, 3, f.store.Count())

	assert.Equal(t, "mesa", f.store.OrderType(), "display defaults to a table order")
	assert.Empty(t, f.store.SelectedOrderType())
	assert.Equal(t, int64(2750), f.store.Snapshot().Totals.Total)

	f.store.SetOrderType("direccion")
	assert.Equal(t, "direccion", f.store.SelectedOrderType())
	snap := f.store.Snapshot()
	assert.Equal(t, "direccion", snap.OrderType)
	assert.Equal(t, int64(300), snap.Totals.Shipping)
	assert.Equal(t, int64(2800), snap.Totals.Total)
}
