package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/tabengine/internal/domain"
)

// createTestStore creates a new on-disk store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestProduct inserts a category (if needed) and a product.
func createTestProduct(t *testing.T, s *Store, category string, p domain.Product) domain.Product {
	t.Helper()
	ctx := context.Background()
	var out domain.Product
	err := s.WithTx(ctx, func(tx *Tx) error {
		cat, err := tx.CategoryByName(ctx, category)
		if err != nil {
			return err
		}
		if cat == nil {
			c, err := tx.InsertCategory(ctx, category)
			if err != nil {
				return err
			}
			cat = &c
		}
		p.CategoryID = cat.ID
		out, err = tx.InsertProduct(ctx, p)
		return err
	})
	if err != nil {
		t.Fatalf("createTestProduct(%q) failed: %v", p.Name, err)
	}
	return out
}

func ptr(f float64) *float64 { return &f }

func getTableColumns(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	var columns []string
	if err := db.Select(&columns, "SELECT name FROM pragma_table_info(?)", table); err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	var indexes []string
	if err := db.Select(&indexes, "SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table); err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
