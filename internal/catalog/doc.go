// Package catalog is the catalog and stock engine.
//
// It owns categories, products, product options and the hourly rate of
// each rental mode. Catalog mutations run in their own transaction, append
// one audit row and emit catalog_changed after commit.
//
// Stock moves are different: Reserve and Release run inside the caller's
// transaction so the order engine can pair a decrement with the order line
// that depends on it. Both return a StockChange that classifies which
// thresholds the move crossed.
package catalog
