package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBus_DeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.OnTableTotalChanged(func(table string, total int64) { got = append(got, "a:"+table) })
	bus.OnTableTotalChanged(func(table string, total int64) { got = append(got, "b:"+table) })

	bus.TableTotalChanged("T01", 500)

	assert.Equal(t, []string{"a:T01", "b:T01"}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsub := bus.OnCatalogChanged(func() { calls++ })

	bus.CatalogChanged()
	unsub()
	unsub()
	bus.CatalogChanged()

	assert.Equal(t, 1, calls)
}

func TestBus_UnsubscribeFromInsideCallback(t *testing.T) {
	bus := NewBus()
	calls := 0
	var unsub func()
	unsub = bus.OnPSStateChanged(func(string, bool) {
		calls++
		unsub()
	})

	bus.PSStateChanged("T05", true)
	bus.PSStateChanged("T05", false)

	assert.Equal(t, 1, calls)
}

func TestBus_PanickingSubscriberIsRecovered(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bus := NewBus(WithLogger(zap.New(core)))

	var after []StockEvent
	bus.OnInventoryLow(func(StockEvent) { panic("boom") })
	bus.OnInventoryLow(func(e StockEvent) { after = append(after, e) })

	ev := StockEvent{Product: "Espresso", Before: 1, After: 0, Min: 1}
	require.NotPanics(t, func() { bus.InventoryLow(ev) })

	assert.Equal(t, []StockEvent{ev}, after)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "subscriber panicked", entry.Message)
	assert.Equal(t, KindInventoryLow, entry.ContextMap()["event"])
}

func TestBus_TablesChangedGetsCopy(t *testing.T) {
	bus := NewBus()
	var seen []string
	bus.OnTablesChanged(func(codes []string) {
		codes[0] = "XX"
		seen = codes
	})

	codes := []string{"T01", "T02"}
	bus.TablesChanged(codes)

	assert.Equal(t, []string{"T01", "T02"}, codes)
	assert.Equal(t, []string{"XX", "T02"}, seen)
}

func TestRecorder_KeepsOrder(t *testing.T) {
	r := NewRecorder()
	r.TableStateChanged("T01", TableOccupied)
	r.TableTotalChanged("T01", 250)
	r.InventoryLow(StockEvent{Product: "Espresso", Before: 1, After: 0, Min: 1})
	r.PSStateChanged("T05", false)
	r.CatalogChanged()
	r.TablesChanged([]string{"T01", "T02"})

	assert.Equal(t, []string{
		"table_state_changed T01 occupied",
		"table_total_changed T01 250",
		"inventory_low Espresso 1 0 1",
		"ps_state_changed T05 false",
		"catalog_changed",
		"tables_changed T01,T02",
	}, r.Strings())

	assert.Len(t, r.OfKind(KindTableTotal), 1)

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestRecorder_ZeroTotalIsRendered(t *testing.T) {
	r := NewRecorder()
	r.TableTotalChanged("T02", 0)

	assert.Equal(t, []string{"table_total_changed T02 0"}, r.Strings())
}

func TestMulti_FansOut(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := Multi{a, Nop{}, b}

	m.TableStateChanged("T03", TableFree)
	m.InventoryRecovered(StockEvent{Product: "Water", Before: 1, After: 5, Min: 2})

	assert.Equal(t, a.Strings(), b.Strings())
	assert.Equal(t, "inventory_recovered Water 1 5 2", a.Strings()[1])
}
