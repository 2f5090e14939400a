package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/events"
	"github.com/roach88/tabengine/internal/store"
)

func newTestCatalog(t *testing.T) (*Catalog, *store.Store, *events.Recorder) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	rec := events.NewRecorder()
	return New(s, WithNotifier(rec)), s, rec
}

func auditActions(t *testing.T, s *store.Store) []string {
	t.Helper()
	entries, err := s.ListAudit(context.Background(), 0)
	require.NoError(t, err)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e.Action
	}
	return out
}

func TestCreateCategory(t *testing.T) {
	c, s, rec := newTestCatalog(t)
	ctx := context.Background()

	cat, err := c.CreateCategory(ctx, "  Coffee ", "admin")
	require.NoError(t, err)
	assert.Equal(t, "Coffee", cat.Name)
	assert.Equal(t, 0, cat.OrderIndex)

	second, err := c.CreateCategory(ctx, "Tea", "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, second.OrderIndex)

	_, err = c.CreateCategory(ctx, "Coffee", "admin")
	assert.True(t, domain.IsValidationError(err))

	_, err = c.CreateCategory(ctx, "   ", "admin")
	assert.True(t, domain.IsValidationError(err))

	assert.Equal(t, []string{"add_category", "add_category"}, auditActions(t, s))
	assert.Len(t, rec.OfKind(events.KindCatalogChanged), 2)
}

func TestRenameCategory(t *testing.T) {
	c, s, rec := newTestCatalog(t)
	ctx := context.Background()
	coffee, _ := c.CreateCategory(ctx, "Coffee", "admin")
	c.CreateCategory(ctx, "Tea", "admin")
	rec.Reset()

	ok, err := c.RenameCategory(ctx, coffee.ID, "Hot Drinks", "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.RenameCategory(ctx, coffee.ID, "Hot Drinks", "admin")
	require.NoError(t, err)
	assert.True(t, ok, "renaming to the same name succeeds")

	_, err = c.RenameCategory(ctx, coffee.ID, "Tea", "admin")
	assert.True(t, domain.IsValidationError(err))

	ok, err = c.RenameCategory(ctx, 999, "Nope", "admin")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, _ := s.ListAudit(ctx, 1)
	require.Len(t, entries, 1)
	assert.Equal(t, "rename_category", entries[0].Action)
	assert.Equal(t, "Coffee", entries[0].OldValue)
	assert.Equal(t, "Hot Drinks", entries[0].NewValue)
	assert.Len(t, rec.Events(), 1)
}

func TestCreateProduct_Validation(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	ctx := context.Background()
	cat, _ := c.CreateCategory(ctx, "Coffee", "admin")

	tests := []struct {
		name string
		in   ProductInput
	}{
		{"empty name", ProductInput{CategoryID: cat.ID, Name: " ", PriceCents: 100}},
		{"zero price", ProductInput{CategoryID: cat.ID, Name: "Espresso", PriceCents: 0}},
		{"negative price", ProductInput{CategoryID: cat.ID, Name: "Espresso", PriceCents: -5}},
		{"missing category", ProductInput{CategoryID: 999, Name: "Espresso", PriceCents: 100}},
		{"negative stock", ProductInput{CategoryID: cat.ID, Name: "Espresso", PriceCents: 100, TrackStock: true, StockQty: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreateProduct(ctx, tt.in, "admin")
			assert.True(t, domain.IsValidationError(err), "got %v", err)
		})
	}

	_, err := c.CreateProduct(ctx, ProductInput{CategoryID: cat.ID, Name: "Espresso", PriceCents: 250}, "admin")
	require.NoError(t, err)
	_, err = c.CreateProduct(ctx, ProductInput{CategoryID: cat.ID, Name: "Espresso", PriceCents: 300}, "admin")
	assert.True(t, domain.IsValidationError(err), "duplicate in same category")
}

func TestCreateProduct_UntrackedStoresNoStock(t *testing.T) {
	c, s, _ := newTestCatalog(t)
	ctx := context.Background()
	cat, _ := c.CreateCategory(ctx, "Services", "admin")

	p, err := c.CreateProduct(ctx, ProductInput{
		CategoryID: cat.ID, Name: "Cover", PriceCents: 1000, StockQty: 7, MinStock: 3,
	}, "admin")
	require.NoError(t, err)
	assert.Nil(t, p.StockQty)
	assert.Equal(t, "Services", p.Category)

	got, err := c.GetProduct(ctx, "Cover")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.StockQty)
	assert.Equal(t, 0.0, got.MinStock)

	entries, _ := s.ListAudit(ctx, 1)
	assert.Equal(t, "Services/Cover", entries[0].EntityName)
	assert.Equal(t, "1000", entries[0].NewValue)
}

func TestUpdateProduct(t *testing.T) {
	c, s, _ := newTestCatalog(t)
	ctx := context.Background()
	cat, _ := c.CreateCategory(ctx, "Coffee", "admin")
	p, _ := c.CreateProduct(ctx, ProductInput{
		CategoryID: cat.ID, Name: "Latte", PriceCents: 300, Customizable: true,
	}, "admin")
	_, err := c.CreateOption(ctx, p.ID, "Oat milk", 50, "admin")
	require.NoError(t, err)

	price := int64(350)
	custom := false
	ok, err := c.UpdateProduct(ctx, p.ID, ProductPatch{PriceCents: &price, Customizable: &custom}, "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := c.GetProductWithOptions(ctx, "Latte")
	require.NoError(t, err)
	assert.Equal(t, int64(350), got.PriceCents)
	assert.False(t, got.Customizable)
	assert.Empty(t, got.Options, "options are dropped when customization is turned off")

	entries, _ := s.ListAudit(ctx, 1)
	assert.Equal(t, "update_product", entries[0].Action)
	assert.Equal(t, "Latte:300:1", entries[0].OldValue)
	assert.Equal(t, "Latte:350:0", entries[0].NewValue)

	// Stock-only changes are not audited.
	track := true
	qty := 12.0
	_, err = c.UpdateProduct(ctx, p.ID, ProductPatch{TrackStock: &track, StockQty: &qty}, "admin")
	require.NoError(t, err)
	latest, _ := s.ListAudit(ctx, 1)
	assert.Equal(t, entries[0].ID, latest[0].ID)

	got, _ = c.GetProduct(ctx, "Latte")
	require.NotNil(t, got.StockQty)
	assert.Equal(t, 12.0, *got.StockQty)

	ok, err = c.UpdateProduct(ctx, 999, ProductPatch{PriceCents: &price}, "admin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateProductPrice(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	ctx := context.Background()
	cat, _ := c.CreateCategory(ctx, "Coffee", "admin")
	c.CreateProduct(ctx, ProductInput{CategoryID: cat.ID, Name: "Mocha", PriceCents: 400}, "admin")

	ok, err := c.UpdateProductPrice(ctx, "Coffee", "Mocha", 450, "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.UpdateProductPrice(ctx, "Tea", "Mocha", 450, "admin")
	require.NoError(t, err)
	assert.False(t, ok)

	p, _ := c.GetProduct(ctx, "Mocha")
	assert.Equal(t, int64(450), p.PriceCents)
}

func TestDeleteProduct_Reindexes(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	ctx := context.Background()
	cat, _ := c.CreateCategory(ctx, "Coffee", "admin")
	a, _ := c.CreateProduct(ctx, ProductInput{CategoryID: cat.ID, Name: "A", PriceCents: 1}, "admin")
	c.CreateProduct(ctx, ProductInput{CategoryID: cat.ID, Name: "B", PriceCents: 1}, "admin")
	c.CreateProduct(ctx, ProductInput{CategoryID: cat.ID, Name: "C", PriceCents: 1}, "admin")

	ok, err := c.DeleteProduct(ctx, a.ID, "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	products, err := c.ListProducts(ctx, cat.ID)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "B", products[0].Name)
	assert.Equal(t, 0, products[0].OrderIndex)
	assert.Equal(t, 1, products[1].OrderIndex)

	ok, err = c.DeleteProduct(ctx, a.ID, "admin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOptions_CRUDAndReorder(t *testing.T) {
	c, _, rec := newTestCatalog(t)
	ctx := context.Background()
	cat, _ := c.CreateCategory(ctx, "Coffee", "admin")
	p, _ := c.CreateProduct(ctx, ProductInput{CategoryID: cat.ID, Name: "Latte", PriceCents: 300, Customizable: true}, "admin")

	oat, err := c.CreateOption(ctx, p.ID, "Oat milk", 50, "admin")
	require.NoError(t, err)
	syrup, err := c.CreateOption(ctx, p.ID, "Syrup", 25, "admin")
	require.NoError(t, err)

	_, err = c.CreateOption(ctx, p.ID, "Syrup", 30, "admin")
	assert.True(t, domain.IsValidationError(err))
	_, err = c.CreateOption(ctx, 999, "Ice", 0, "admin")
	assert.True(t, domain.IsValidationError(err))

	ok, err := c.UpdateOption(ctx, syrup.ID, "Vanilla syrup", 30, "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.ReorderOptions(ctx, p.ID, []int64{syrup.ID}))
	opts, err := c.ListOptions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, opts, 2)
	assert.Equal(t, "Vanilla syrup", opts[0].Label)
	assert.Equal(t, int64(30), opts[0].PriceDeltaCents)
	assert.Equal(t, "Oat milk", opts[1].Label)

	ok, err = c.DeleteOption(ctx, syrup.ID, "admin")
	require.NoError(t, err)
	assert.True(t, ok)
	opts, _ = c.ListOptions(ctx, p.ID)
	require.Len(t, opts, 1)
	assert.Equal(t, oat.ID, opts[0].ID)
	assert.Equal(t, 0, opts[0].OrderIndex)

	assert.NotEmpty(t, rec.OfKind(events.KindCatalogChanged))
}

func TestCategories_ListingAndDelete(t *testing.T) {
	c, _, _ := newTestCatalog(t)
	ctx := context.Background()
	coffee, _ := c.CreateCategory(ctx, "Coffee", "admin")
	tea, _ := c.CreateCategory(ctx, "Tea", "admin")
	c.CreateProduct(ctx, ProductInput{CategoryID: coffee.ID, Name: "Espresso", PriceCents: 250}, "admin")
	c.CreateProduct(ctx, ProductInput{CategoryID: tea.ID, Name: "Mint", PriceCents: 150}, "admin")

	require.NoError(t, c.ReorderCategories(ctx, []int64{tea.ID}))
	listing, err := c.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, listing, 2)
	assert.Equal(t, "Tea", listing[0].Category.Name)
	assert.Equal(t, "Mint", listing[0].Products[0].Name)

	ok, err := c.DeleteCategory(ctx, tea.ID, "admin")
	require.NoError(t, err)
	assert.True(t, ok)

	cats, _ := c.ListCategories(ctx)
	require.Len(t, cats, 1)
	assert.Equal(t, 0, cats[0].OrderIndex)
	p, _ := c.GetProduct(ctx, "Mint")
	assert.Nil(t, p)
}
