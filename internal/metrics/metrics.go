// Package metrics exposes prometheus instruments for engine activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Namespace and subsystem for all metrics.
	namespace = "tabengine"
	subsystem = "engine"

	itemsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "items_added_total",
			Help:      "Total number of order items committed",
		},
	)

	stockRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stock_rejections_total",
			Help:      "Total number of item changes rejected for insufficient stock",
		},
	)

	ordersSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orders_settled_total",
			Help:      "Total number of settled orders by payment method",
		},
		[]string{"method"},
	)

	settledAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "settled_amount_cents_total",
			Help:      "Sum of settled order totals in cents",
		},
	)

	sessionBills = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "session_bills_total",
			Help:      "Total number of closed and billed sessions by mode",
		},
		[]string{"mode"},
	)

	merges = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "merges_total",
			Help:      "Total number of merged tables",
		},
	)

	openTables = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "open_tables",
			Help:      "Number of tables with an open order",
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Number of running sessions",
		},
	)
)

// IncItemsAdded counts a committed order item.
func IncItemsAdded() {
	itemsAdded.Inc()
}

// IncStockRejections counts a stock rejection.
func IncStockRejections() {
	stockRejections.Inc()
}

// RecordSettlement counts a settled order and its amount.
func RecordSettlement(method string, amountCents int64) {
	ordersSettled.WithLabelValues(method).Inc()
	if amountCents > 0 {
		settledAmount.Add(float64(amountCents))
	}
}

// IncSessionBills counts a billed session.
func IncSessionBills(mode string) {
	sessionBills.WithLabelValues(mode).Inc()
}

// IncMerges counts a merge.
func IncMerges() {
	merges.Inc()
}

// SetOpenTables sets the open table gauge.
func SetOpenTables(n int) {
	openTables.Set(float64(n))
}

// SetActiveSessions sets the running session gauge.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// Handler returns an HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
