package events

// TableState is the occupancy of a table as seen by observers.
type TableState string

const (
	TableOccupied TableState = "occupied"
	TableFree     TableState = "free"
)

// StockEvent describes a threshold crossing of a tracked product.
type StockEvent struct {
	Product string  `json:"product"`
	Before  float64 `json:"before"`
	After   float64 `json:"after"`
	Min     float64 `json:"min"`
}

// Notifier receives engine state changes. Implementations must not call
// back into the engine synchronously with a write; reads are fine.
type Notifier interface {
	TableStateChanged(table string, state TableState)
	TableTotalChanged(table string, totalCents int64)
	PSStateChanged(table string, active bool)
	InventoryLow(e StockEvent)
	InventoryRecovered(e StockEvent)
	CatalogChanged()
	TablesChanged(codes []string)
}

// Nop is a Notifier that discards every event.
type Nop struct{}

func (Nop) TableStateChanged(string, TableState) {}
func (Nop) TableTotalChanged(string, int64)      {}
func (Nop) PSStateChanged(string, bool)          {}
func (Nop) InventoryLow(StockEvent)              {}
func (Nop) InventoryRecovered(StockEvent)        {}
func (Nop) CatalogChanged()                      {}
func (Nop) TablesChanged([]string)               {}

var _ Notifier = Nop{}
