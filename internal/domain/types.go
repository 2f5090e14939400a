package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus is the persisted lifecycle state of an order.
type OrderStatus string

const (
	StatusOpen OrderStatus = "open"
	StatusPaid OrderStatus = "paid"
	StatusVoid OrderStatus = "void"
)

// Mode is a rental tier for metered console sessions.
type Mode string

const (
	ModeP2 Mode = "P2"
	ModeP4 Mode = "P4"
)

// Modes lists the enumerated rental tiers in display order.
var Modes = []Mode{ModeP2, ModeP4}

// ParseMode accepts a mode code in any case and surrounding whitespace.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown rental mode %q", s)}
}

// Label returns the human-readable tier name used on billing lines.
func (m Mode) Label() string {
	switch m {
	case ModeP2:
		return "PS 2 players"
	case ModeP4:
		return "PS 4 players"
	default:
		return "PS " + string(m)
	}
}

// Category groups products for display.
type Category struct {
	ID         int64  `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	OrderIndex int    `db:"order_index" json:"order_index"`
}

// Product is a sellable catalog entry.
//
// StockQty is nil for untracked products. Category is filled by lookups
// that join the category table and is empty otherwise.
type Product struct {
	ID           int64    `db:"id" json:"id"`
	CategoryID   int64    `db:"category_id" json:"category_id"`
	Category     string   `db:"category" json:"category,omitempty"`
	Name         string   `db:"name" json:"name"`
	PriceCents   int64    `db:"price_cents" json:"price_cents"`
	Customizable bool     `db:"customizable" json:"customizable"`
	TrackStock   bool     `db:"track_stock" json:"track_stock"`
	StockQty     *float64 `db:"stock_qty" json:"stock_qty,omitempty"`
	MinStock     float64  `db:"min_stock" json:"min_stock"`
	OrderIndex   int      `db:"order_index" json:"order_index"`

	Options []ProductOption `db:"-" json:"options,omitempty"`
}

// Stock returns the tracked quantity, treating a missing value as zero.
func (p *Product) Stock() float64 {
	if p.StockQty == nil {
		return 0
	}
	return *p.StockQty
}

// ProductOption is a priced modifier of a customizable product.
type ProductOption struct {
	ID              int64  `db:"id" json:"id"`
	ProductID       int64  `db:"product_id" json:"product_id"`
	Label           string `db:"label" json:"label"`
	PriceDeltaCents int64  `db:"price_delta_cents" json:"price_delta_cents"`
	OrderIndex      int    `db:"order_index" json:"order_index"`
}

// CategoryListing is a category with its products, in display order.
type CategoryListing struct {
	Category Category  `json:"category"`
	Products []Product `json:"products"`
}

// StockState is the stock level of a tracked product read back after an
// update, together with its low-stock threshold.
type StockState struct {
	Qty float64 `json:"qty"`
	Min float64 `json:"min"`
}

// LowStock is one row of the low-stock report.
type LowStock struct {
	Name string  `db:"name" json:"name"`
	Qty  float64 `db:"stock_qty" json:"qty"`
	Min  float64 `db:"min_stock" json:"min"`
}

// Rate is the hourly price of a rental tier.
type Rate struct {
	Mode         Mode   `db:"mode" json:"mode"`
	Label        string `db:"label" json:"label"`
	PerHourCents int64  `db:"rate_per_hour_cents" json:"rate_per_hour_cents"`
}

// Order is a table's tab.
type Order struct {
	ID            int64       `json:"id"`
	TableCode     string      `json:"table_code"`
	OpenedAt      time.Time   `json:"opened_at"`
	ClosedAt      *time.Time  `json:"closed_at,omitempty"`
	Status        OrderStatus `json:"status"`
	OpenedBy      string      `json:"opened_by"`
	ClosedBy      string      `json:"closed_by,omitempty"`
	DiscountCents int64       `json:"discount_cents"`
	Items         []OrderItem `json:"items,omitempty"`
}

// OrderItem is one line on an order. Name and unit price are snapshots
// taken when the line was added.
type OrderItem struct {
	ID             int64   `db:"id" json:"id"`
	OrderID        int64   `db:"order_id" json:"order_id"`
	Product        string  `db:"product_name" json:"product"`
	UnitPriceCents int64   `db:"price_cents" json:"unit_price_cents"`
	Qty            float64 `db:"qty" json:"qty"`
	Note           string  `db:"note" json:"note,omitempty"`
}

// TotalCents is the line total, truncated toward zero.
func (i OrderItem) TotalCents() int64 {
	return LineTotal(i.UnitPriceCents, i.Qty)
}

// Payment records how an order was settled.
type Payment struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"order_id"`
	Method      string    `json:"method"`
	AmountCents int64     `json:"amount_cents"`
	PaidAt      time.Time `json:"paid_at"`
	Cashier     string    `json:"cashier"`
	Reference   string    `json:"reference"`
}

// Session is a metered rental running on a table.
type Session struct {
	TableCode          string    `json:"table_code"`
	Mode               Mode      `json:"mode"`
	StartedAt          time.Time `json:"started_at"`
	AccumulatedSeconds int64     `json:"accumulated_seconds"`
}

// Elapsed returns the billable seconds of the session as of now.
func (s Session) Elapsed(now time.Time) int64 {
	running := int64(now.Sub(s.StartedAt) / time.Second)
	if running < 0 {
		running = 0
	}
	return s.AccumulatedSeconds + running
}

// AuditEntry is one immutable audit_log row.
type AuditEntry struct {
	ID         int64     `json:"id"`
	At         time.Time `json:"ts"`
	Actor      string    `json:"username"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityName string    `json:"entity_name,omitempty"`
	OldValue   string    `json:"old_value,omitempty"`
	NewValue   string    `json:"new_value,omitempty"`
	Extra      string    `json:"extra,omitempty"`
}

// ReservationStatus is the state of a table reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationSeated    ReservationStatus = "seated"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a booked table for a future time.
type Reservation struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Phone       string            `json:"phone,omitempty"`
	PartySize   int               `json:"party_size"`
	ReservedFor time.Time         `json:"reserved_for"`
	TableCode   string            `json:"table_code,omitempty"`
	Status      ReservationStatus `json:"status"`
	Notes       string            `json:"notes,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CreatedBy   string            `json:"created_by,omitempty"`
}

// Purchase is a supplier invoice recorded against the shop's spending.
type Purchase struct {
	ID          int64     `json:"id"`
	PurchasedAt time.Time `json:"purchased_at"`
	Supplier    string    `json:"supplier"`
	InvoiceNo   string    `json:"invoice_no,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Notes       string    `json:"notes,omitempty"`
	RecordedBy  string    `json:"recorded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
