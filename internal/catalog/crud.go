package catalog

import (
	"context"
	"fmt"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/store"
)

// ProductInput describes a new product.
type ProductInput struct {
	CategoryID   int64
	Name         string
	PriceCents   int64
	Customizable bool
	TrackStock   bool
	StockQty     float64
	MinStock     float64
}

// ProductPatch changes selected fields of a product. Nil fields keep
// their current value.
type ProductPatch struct {
	Name         *string
	PriceCents   *int64
	Customizable *bool
	TrackStock   *bool
	StockQty     *float64
	MinStock     *float64
}

// CreateCategory appends a category at the end of the display order.
func (c *Catalog) CreateCategory(ctx context.Context, name, actor string) (domain.Category, error) {
	cleaned := domain.CleanName(name)
	if cleaned == "" {
		return domain.Category{}, domain.NewValidationError("name", "category name is required")
	}

	var cat domain.Category
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		taken, err := tx.CategoryNameTaken(ctx, cleaned, 0)
		if err != nil {
			return err
		}
		if taken {
			return domain.NewValidationError("name", "category %q already exists", cleaned)
		}
		if cat, err = tx.InsertCategory(ctx, cleaned); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, domain.AuditEntry{
			Actor: actor, Action: "add_category", EntityType: "category", EntityName: cleaned,
		})
	})
	if err != nil {
		return domain.Category{}, err
	}
	c.changed()
	return cat, nil
}

// RenameCategory renames a category. It returns false if the category
// does not exist; renaming to the current name is a successful no-op.
func (c *Catalog) RenameCategory(ctx context.Context, id int64, name, actor string) (bool, error) {
	cleaned := domain.CleanName(name)
	if cleaned == "" {
		return false, domain.NewValidationError("name", "category name is required")
	}

	found, renamed := false, false
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		cat, err := tx.GetCategory(ctx, id)
		if err != nil || cat == nil {
			return err
		}
		found = true
		if cat.Name == cleaned {
			return nil
		}
		taken, err := tx.CategoryNameTaken(ctx, cleaned, id)
		if err != nil {
			return err
		}
		if taken {
			return domain.NewValidationError("name", "category %q already exists", cleaned)
		}
		if err := tx.RenameCategory(ctx, id, cleaned); err != nil {
			return err
		}
		renamed = true
		return tx.AppendAudit(ctx, domain.AuditEntry{
			Actor: actor, Action: "rename_category", EntityType: "category", EntityName: cat.Name,
			OldValue: cat.Name, NewValue: cleaned,
		})
	})
	if err != nil {
		return false, err
	}
	if renamed {
		c.changed()
	}
	return found, nil
}

// DeleteCategory removes a category with its products and options.
func (c *Catalog) DeleteCategory(ctx context.Context, id int64, actor string) (bool, error) {
	found := false
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		cat, err := tx.GetCategory(ctx, id)
		if err != nil || cat == nil {
			return err
		}
		found = true
		if err := tx.DeleteCategory(ctx, id); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, domain.AuditEntry{
			Actor: actor, Action: "delete_category", EntityType: "category", EntityName: cat.Name,
			OldValue: cat.Name,
		})
	})
	if err != nil || !found {
		return false, err
	}
	c.changed()
	return true, nil
}

// ReorderCategories applies a requested display order. Unknown ids are
// ignored and omitted categories keep their relative order at the end.
func (c *Catalog) ReorderCategories(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.ReorderCategories(ctx, ids)
	})
	if err != nil {
		return err
	}
	c.changed()
	return nil
}

// CreateProduct validates and inserts a product at the end of its
// category. Untracked products store no stock quantity and a zero
// threshold.
func (c *Catalog) CreateProduct(ctx context.Context, in ProductInput, actor string) (domain.Product, error) {
	name := domain.CleanName(in.Name)
	if name == "" {
		return domain.Product{}, domain.NewValidationError("name", "product name is required")
	}
	if in.PriceCents <= 0 {
		return domain.Product{}, domain.NewValidationError("price_cents", "price must be positive, got %d", in.PriceCents)
	}
	if in.TrackStock && (in.StockQty < 0 || in.MinStock < 0) {
		return domain.Product{}, domain.NewValidationError("stock_qty", "stock and threshold must not be negative")
	}

	p := domain.Product{
		CategoryID:   in.CategoryID,
		Name:         name,
		PriceCents:   in.PriceCents,
		Customizable: in.Customizable,
		TrackStock:   in.TrackStock,
	}
	if in.TrackStock {
		qty := in.StockQty
		p.StockQty = &qty
		p.MinStock = in.MinStock
	}

	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		cat, err := tx.GetCategory(ctx, in.CategoryID)
		if err != nil {
			return err
		}
		if cat == nil {
			return domain.NewValidationError("category_id", "category %d does not exist", in.CategoryID)
		}
		taken, err := tx.ProductNameTaken(ctx, in.CategoryID, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return domain.NewValidationError("name", "product %q already exists in %q", name, cat.Name)
		}
		if p, err = tx.InsertProduct(ctx, p); err != nil {
			return err
		}
		p.Category = cat.Name
		return tx.AppendAudit(ctx, domain.AuditEntry{
			Actor: actor, Action: "add_product", EntityType: "product",
			EntityName: cat.Name + "/" + name, NewValue: fmt.Sprint(in.PriceCents),
		})
	})
	if err != nil {
		return domain.Product{}, err
	}
	c.changed()
	return p, nil
}

// UpdateProduct applies patch to the product with id. Turning
// customization off drops the product's options. An audit row is written
// only when the name, price or customizable flag changed.
func (c *Catalog) UpdateProduct(ctx context.Context, id int64, patch ProductPatch, actor string) (bool, error) {
	if patch.Name != nil && domain.CleanName(*patch.Name) == "" {
		return false, domain.NewValidationError("name", "product name is required")
	}
	if patch.PriceCents != nil && *patch.PriceCents <= 0 {
		return false, domain.NewValidationError("price_cents", "price must be positive, got %d", *patch.PriceCents)
	}
	if (patch.StockQty != nil && *patch.StockQty < 0) || (patch.MinStock != nil && *patch.MinStock < 0) {
		return false, domain.NewValidationError("stock_qty", "stock and threshold must not be negative")
	}

	found := false
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		old, err := tx.GetProductByID(ctx, id)
		if err != nil || old == nil {
			return err
		}
		found = true

		next := *old
		if patch.Name != nil {
			next.Name = domain.CleanName(*patch.Name)
		}
		if patch.PriceCents != nil {
			next.PriceCents = *patch.PriceCents
		}
		if patch.Customizable != nil {
			next.Customizable = *patch.Customizable
		}
		if patch.TrackStock != nil {
			next.TrackStock = *patch.TrackStock
		}
		if patch.StockQty != nil {
			qty := *patch.StockQty
			next.StockQty = &qty
		}
		if patch.MinStock != nil {
			next.MinStock = *patch.MinStock
		}
		if !next.TrackStock {
			next.StockQty = nil
			next.MinStock = 0
		} else if next.StockQty == nil {
			zero := 0.0
			next.StockQty = &zero
		}

		if next.Name != old.Name {
			taken, err := tx.ProductNameTaken(ctx, old.CategoryID, next.Name, id)
			if err != nil {
				return err
			}
			if taken {
				return domain.NewValidationError("name", "product %q already exists in %q", next.Name, old.Category)
			}
		}
		if err := tx.UpdateProduct(ctx, next); err != nil {
			return err
		}
		if !next.Customizable {
			if err := tx.DeleteOptionsForProduct(ctx, id); err != nil {
				return err
			}
		}
		if old.Name == next.Name && old.PriceCents == next.PriceCents && old.Customizable == next.Customizable {
			return nil
		}
		return tx.AppendAudit(ctx, domain.AuditEntry{
			Actor: actor, Action: "update_product", EntityType: "product",
			EntityName: old.Category + "/" + old.Name,
			OldValue:   productSignature(*old),
			NewValue:   productSignature(next),
		})
	})
	if err != nil || !found {
		return false, err
	}
	c.changed()
	return true, nil
}

// UpdateProductPrice changes the price of the product called name in
// category. It returns false if no such product exists.
func (c *Catalog) UpdateProductPrice(ctx context.Context, category, name string, priceCents int64, actor string) (bool, error) {
	cat, err := c.store.CategoryByName(ctx, domain.CleanName(category))
	if err != nil || cat == nil {
		return false, err
	}
	p, err := c.store.ProductInCategory(ctx, cat.ID, domain.CleanName(name))
	if err != nil || p == nil {
		return false, err
	}
	return c.UpdateProduct(ctx, p.ID, ProductPatch{PriceCents: &priceCents}, actor)
}

// DeleteProduct removes a product and its options.
func (c *Catalog) DeleteProduct(ctx context.Context, id int64, actor string) (bool, error) {
	found := false
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		p, err := tx.GetProductByID(ctx, id)
		if err != nil || p == nil {
			return err
		}
		found = true
		if err := tx.DeleteProduct(ctx, id, p.CategoryID); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, domain.AuditEntry{
			Actor: actor, Action: "delete_product", EntityType: "product",
			EntityName: p.Category + "/" + p.Name, OldValue: p.Name,
		})
	})
	if err != nil || !found {
		return false, err
	}
	c.changed()
	return true, nil
}

// ReorderProducts applies a requested display order within a category.
func (c *Catalog) ReorderProducts(ctx context.Context, categoryID int64, ids []int64) error {
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.ReorderProducts(ctx, categoryID, ids)
	})
	if err != nil {
		return err
	}
	c.changed()
	return nil
}

// CreateOption appends an option to a product.
func (c *Catalog) CreateOption(ctx context.Context, productID int64, label string, deltaCents int64, actor string) (domain.ProductOption, error) {
	cleaned := domain.CleanName(label)
	if cleaned == "" {
		return domain.ProductOption{}, domain.NewValidationError("label", "option label is required")
	}

	var opt domain.ProductOption
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		p, err := tx.GetProductByID(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.NewValidationError("product_id", "product %d does not exist", productID)
		}
		taken, err := tx.OptionLabelTaken(ctx, productID, cleaned, 0)
		if err != nil {
			return err
		}
		if taken {
			return domain.NewValidationError("label", "option %q already exists on %q", cleaned, p.Name)
		}
		opt, err = tx.InsertOption(ctx, domain.ProductOption{
			ProductID: productID, Label: cleaned, PriceDeltaCents: deltaCents,
		})
		if err != nil {
			return err
		}
		return tx.AppendAudit(ctx, domain.AuditEntry{
			Actor: actor, Action: "add_option", EntityType: "product_option",
			EntityName: p.Category + "/" + p.Name, NewValue: optionSignature(opt),
		})
	})
	if err != nil {
		return domain.ProductOption{}, err
	}
	c.changed()
	return opt, nil
}

// UpdateOption sets an option's label and price delta.
func (c *Catalog) UpdateOption(ctx context.Context, id int64, label string, deltaCents int64, actor string) (bool, error) {
	cleaned := domain.CleanName(label)
	if cleaned == "" {
		return false, domain.NewValidationError("label", "option label is required")
	}

	found := false
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		old, err := tx.GetOption(ctx, id)
		if err != nil || old == nil {
			return err
		}
		found = true
		p, err := tx.GetProductByID(ctx, old.ProductID)
		if err != nil {
			return err
		}
		taken, err := tx.OptionLabelTaken(ctx, old.ProductID, cleaned, id)
		if err != nil {
			return err
		}
		if taken {
			return domain.NewValidationError("label", "option %q already exists", cleaned)
		}
		next := *old
		next.Label = cleaned
		next.PriceDeltaCents = deltaCents
		if err := tx.UpdateOption(ctx, next); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, domain.AuditEntry{
			Actor: actor, Action: "update_option", EntityType: "product_option",
			EntityName: p.Category + "/" + p.Name,
			OldValue:   optionSignature(*old), NewValue: optionSignature(next),
		})
	})
	if err != nil || !found {
		return false, err
	}
	c.changed()
	return true, nil
}

// DeleteOption removes an option.
func (c *Catalog) DeleteOption(ctx context.Context, id int64, actor string) (bool, error) {
	found := false
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		old, err := tx.GetOption(ctx, id)
		if err != nil || old == nil {
			return err
		}
		found = true
		p, err := tx.GetProductByID(ctx, old.ProductID)
		if err != nil {
			return err
		}
		if err := tx.DeleteOption(ctx, id, old.ProductID); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, domain.AuditEntry{
			Actor: actor, Action: "delete_option", EntityType: "product_option",
			EntityName: p.Category + "/" + p.Name, OldValue: old.Label,
		})
	})
	if err != nil || !found {
		return false, err
	}
	c.changed()
	return true, nil
}

// ReorderOptions applies a requested display order within a product.
func (c *Catalog) ReorderOptions(ctx context.Context, productID int64, ids []int64) error {
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.ReorderOptions(ctx, productID, ids)
	})
	if err != nil {
		return err
	}
	c.changed()
	return nil
}

func productSignature(p domain.Product) string {
	custom := 0
	if p.Customizable {
		custom = 1
	}
	return fmt.Sprintf("%s:%d:%d", p.Name, p.PriceCents, custom)
}

func optionSignature(o domain.ProductOption) string {
	return fmt.Sprintf("%s:%d", o.Label, o.PriceDeltaCents)
}
