package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/events"
	"github.com/roach88/tabengine/internal/store"
)

// Catalog is the catalog and stock engine bound to one store.
type Catalog struct {
	store    *store.Store
	notifier events.Notifier
	logger   *zap.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithNotifier sets the notifier that receives catalog_changed.
func WithNotifier(n events.Notifier) Option {
	return func(c *Catalog) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Catalog over s.
func New(s *store.Store, opts ...Option) *Catalog {
	c := &Catalog{store: s, notifier: events.Nop{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProduct looks up a product by name. A nil product with a nil error
// means the name is not in the catalog.
func (c *Catalog) GetProduct(ctx context.Context, name string) (*domain.Product, error) {
	return c.store.GetProduct(ctx, name)
}

// GetProductWithOptions looks up a product by name and loads its options.
func (c *Catalog) GetProductWithOptions(ctx context.Context, name string) (*domain.Product, error) {
	p, err := c.store.GetProduct(ctx, name)
	if err != nil || p == nil {
		return p, err
	}
	opts, err := c.store.ListOptions(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Options = opts
	return p, nil
}

// Categories returns every category with its products, in display order.
func (c *Catalog) Categories(ctx context.Context) ([]domain.CategoryListing, error) {
	cats, err := c.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CategoryListing, 0, len(cats))
	for _, cat := range cats {
		products, err := c.store.ListProducts(ctx, cat.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.CategoryListing{Category: cat, Products: products})
	}
	return out, nil
}

// ListCategories returns the categories in display order.
func (c *Catalog) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return c.store.ListCategories(ctx)
}

// ListProducts returns a category's products in display order.
func (c *Catalog) ListProducts(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	return c.store.ListProducts(ctx, categoryID)
}

// ListOptions returns a product's options in display order.
func (c *Catalog) ListOptions(ctx context.Context, productID int64) ([]domain.ProductOption, error) {
	return c.store.ListOptions(ctx, productID)
}

// LowStock returns tracked products at or below their threshold.
func (c *Catalog) LowStock(ctx context.Context) ([]domain.LowStock, error) {
	return c.store.LowStock(ctx)
}

func (c *Catalog) changed() {
	c.notifier.CatalogChanged()
}
