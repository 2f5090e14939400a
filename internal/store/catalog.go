package store

import (
	"context"

	"github.com/roach88/tabengine/internal/domain"
)

const productColumns = `p.id, p.category_id, c.name AS category, p.name, p.price_cents,
	p.customizable, p.track_stock, p.stock_qty, p.min_stock, p.order_index`

// ListCategories returns all categories in display order.
func (q *Queries) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cats := []domain.Category{}
	err := q.selectAll(ctx, &cats,
		`SELECT id, name, order_index FROM categories ORDER BY order_index, id`)
	if err != nil {
		return nil, persistErr("list categories", err)
	}
	return cats, nil
}

// GetCategory returns the category with id, or nil if absent.
func (q *Queries) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := q.get(ctx, &c, `SELECT id, name, order_index FROM categories WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get category", err)
	}
	return &c, nil
}

// CategoryByName returns the category named name, or nil if absent.
func (q *Queries) CategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	var c domain.Category
	err := q.get(ctx, &c, `SELECT id, name, order_index FROM categories WHERE name = ?`, name)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get category by name", err)
	}
	return &c, nil
}

// CategoryNameTaken reports whether another category already uses name.
func (q *Queries) CategoryNameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	var n int
	err := q.get(ctx, &n, `SELECT COUNT(*) FROM categories WHERE name = ? AND id <> ?`, name, exceptID)
	if err != nil {
		return false, persistErr("check category name", err)
	}
	return n > 0, nil
}

// InsertCategory appends a category at the end of the display order.
func (q *Queries) InsertCategory(ctx context.Context, name string) (domain.Category, error) {
	var next int
	if err := q.get(ctx, &next, `SELECT COALESCE(MAX(order_index), -1) + 1 FROM categories`); err != nil {
		return domain.Category{}, persistErr("next category index", err)
	}
	res, err := q.exec(ctx, `INSERT INTO categories(name, order_index) VALUES(?, ?)`, name, next)
	if err != nil {
		return domain.Category{}, persistErr("insert category", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Category{}, persistErr("insert category", err)
	}
	return domain.Category{ID: id, Name: name, OrderIndex: next}, nil
}

// RenameCategory sets a category's name.
func (q *Queries) RenameCategory(ctx context.Context, id int64, name string) error {
	_, err := q.exec(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id)
	return persistErr("rename category", err)
}

// DeleteCategory removes a category with its products and their options,
// then closes the gap in the display order.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := q.exec(ctx,
		`DELETE FROM product_options WHERE product_id IN (SELECT id FROM products WHERE category_id = ?)`, id); err != nil {
		return persistErr("delete category options", err)
	}
	if _, err := q.exec(ctx, `DELETE FROM products WHERE category_id = ?`, id); err != nil {
		return persistErr("delete category products", err)
	}
	if _, err := q.exec(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return persistErr("delete category", err)
	}
	ids, err := q.categoryIDs(ctx)
	if err != nil {
		return err
	}
	return q.SetCategoryOrder(ctx, ids)
}

func (q *Queries) categoryIDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	if err := q.selectAll(ctx, &ids, `SELECT id FROM categories ORDER BY order_index, id`); err != nil {
		return nil, persistErr("list category ids", err)
	}
	return ids, nil
}

// SetCategoryOrder writes order_index = position for each id.
func (q *Queries) SetCategoryOrder(ctx context.Context, ids []int64) error {
	for idx, id := range ids {
		if _, err := q.exec(ctx, `UPDATE categories SET order_index = ? WHERE id = ?`, idx, id); err != nil {
			return persistErr("reorder categories", err)
		}
	}
	return nil
}

// ReorderCategories applies a requested order. Unknown ids are ignored and
// categories missing from the request keep their relative order at the end.
func (q *Queries) ReorderCategories(ctx context.Context, requested []int64) error {
	current, err := q.categoryIDs(ctx)
	if err != nil {
		return err
	}
	return q.SetCategoryOrder(ctx, MergeOrder(current, requested))
}

// ListProducts returns a category's products in display order.
func (q *Queries) ListProducts(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	products := []domain.Product{}
	err := q.selectAll(ctx, &products, `SELECT `+productColumns+`
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE p.category_id = ?
		ORDER BY p.order_index, p.id`, categoryID)
	if err != nil {
		return nil, persistErr("list products", err)
	}
	return products, nil
}

// GetProduct looks up a product by name. Absence is not an error: it
// returns nil, and callers treat the name as an untracked ad-hoc line.
func (q *Queries) GetProduct(ctx context.Context, name string) (*domain.Product, error) {
	var p domain.Product
	err := q.get(ctx, &p, `SELECT `+productColumns+`
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE p.name = ?
		ORDER BY p.id LIMIT 1`, name)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get product", err)
	}
	return &p, nil
}

// GetProductByID returns the product with id, or nil if absent.
func (q *Queries) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := q.get(ctx, &p, `SELECT `+productColumns+`
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE p.id = ?`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get product by id", err)
	}
	return &p, nil
}

// ProductInCategory returns the product called name in a category, or
// nil if absent.
func (q *Queries) ProductInCategory(ctx context.Context, categoryID int64, name string) (*domain.Product, error) {
	var p domain.Product
	err := q.get(ctx, &p, `SELECT `+productColumns+`
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE p.category_id = ? AND p.name = ?`, categoryID, name)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get product in category", err)
	}
	return &p, nil
}

// ProductNameTaken reports whether the category already has a product
// called name, other than exceptID.
func (q *Queries) ProductNameTaken(ctx context.Context, categoryID int64, name string, exceptID int64) (bool, error) {
	var n int
	err := q.get(ctx, &n,
		`SELECT COUNT(*) FROM products WHERE category_id = ? AND name = ? AND id <> ?`,
		categoryID, name, exceptID)
	if err != nil {
		return false, persistErr("check product name", err)
	}
	return n > 0, nil
}

// InsertProduct appends a product at the end of its category. The ID and
// OrderIndex of p are ignored and set on the returned copy.
func (q *Queries) InsertProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	var next int
	if err := q.get(ctx, &next,
		`SELECT COALESCE(MAX(order_index), -1) + 1 FROM products WHERE category_id = ?`, p.CategoryID); err != nil {
		return domain.Product{}, persistErr("next product index", err)
	}
	res, err := q.exec(ctx, `INSERT INTO products
		(category_id, name, price_cents, customizable, track_stock, stock_qty, min_stock, order_index)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CategoryID, p.Name, p.PriceCents, p.Customizable, p.TrackStock, p.StockQty, p.MinStock, next)
	if err != nil {
		return domain.Product{}, persistErr("insert product", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Product{}, persistErr("insert product", err)
	}
	p.ID = id
	p.OrderIndex = next
	return p, nil
}

// UpdateProduct writes every mutable column of p.
func (q *Queries) UpdateProduct(ctx context.Context, p domain.Product) error {
	_, err := q.exec(ctx, `UPDATE products
		SET name = ?, price_cents = ?, customizable = ?, track_stock = ?, stock_qty = ?, min_stock = ?
		WHERE id = ?`,
		p.Name, p.PriceCents, p.Customizable, p.TrackStock, p.StockQty, p.MinStock, p.ID)
	return persistErr("update product", err)
}

// DeleteProduct removes a product and its options, then closes the gap in
// its category's display order.
func (q *Queries) DeleteProduct(ctx context.Context, id, categoryID int64) error {
	if err := q.DeleteOptionsForProduct(ctx, id); err != nil {
		return err
	}
	if _, err := q.exec(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return persistErr("delete product", err)
	}
	ids, err := q.productIDs(ctx, categoryID)
	if err != nil {
		return err
	}
	return q.setProductOrder(ctx, ids)
}

func (q *Queries) productIDs(ctx context.Context, categoryID int64) ([]int64, error) {
	ids := []int64{}
	if err := q.selectAll(ctx, &ids,
		`SELECT id FROM products WHERE category_id = ? ORDER BY order_index, id`, categoryID); err != nil {
		return nil, persistErr("list product ids", err)
	}
	return ids, nil
}

func (q *Queries) setProductOrder(ctx context.Context, ids []int64) error {
	for idx, id := range ids {
		if _, err := q.exec(ctx, `UPDATE products SET order_index = ? WHERE id = ?`, idx, id); err != nil {
			return persistErr("reorder products", err)
		}
	}
	return nil
}

// ReorderProducts applies a requested order within one category.
func (q *Queries) ReorderProducts(ctx context.Context, categoryID int64, requested []int64) error {
	current, err := q.productIDs(ctx, categoryID)
	if err != nil {
		return err
	}
	return q.setProductOrder(ctx, MergeOrder(current, requested))
}

// ListOptions returns a product's options in display order.
func (q *Queries) ListOptions(ctx context.Context, productID int64) ([]domain.ProductOption, error) {
	opts := []domain.ProductOption{}
	err := q.selectAll(ctx, &opts, `SELECT id, product_id, label, price_delta_cents, order_index
		FROM product_options WHERE product_id = ? ORDER BY order_index, id`, productID)
	if err != nil {
		return nil, persistErr("list options", err)
	}
	return opts, nil
}

// GetOption returns the option with id, or nil if absent.
func (q *Queries) GetOption(ctx context.Context, id int64) (*domain.ProductOption, error) {
	var o domain.ProductOption
	err := q.get(ctx, &o, `SELECT id, product_id, label, price_delta_cents, order_index
		FROM product_options WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get option", err)
	}
	return &o, nil
}

// OptionByLabel returns the option of a product with label, or nil.
func (q *Queries) OptionByLabel(ctx context.Context, productID int64, label string) (*domain.ProductOption, error) {
	var o domain.ProductOption
	err := q.get(ctx, &o, `SELECT id, product_id, label, price_delta_cents, order_index
		FROM product_options WHERE product_id = ? AND label = ?`, productID, label)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get option by label", err)
	}
	return &o, nil
}

// OptionLabelTaken reports whether the product already has an option
// labelled label, other than exceptID.
func (q *Queries) OptionLabelTaken(ctx context.Context, productID int64, label string, exceptID int64) (bool, error) {
	var n int
	err := q.get(ctx, &n,
		`SELECT COUNT(*) FROM product_options WHERE product_id = ? AND label = ? AND id <> ?`,
		productID, label, exceptID)
	if err != nil {
		return false, persistErr("check option label", err)
	}
	return n > 0, nil
}

// InsertOption appends an option at the end of its product's list.
func (q *Queries) InsertOption(ctx context.Context, o domain.ProductOption) (domain.ProductOption, error) {
	var next int
	if err := q.get(ctx, &next,
		`SELECT COALESCE(MAX(order_index), -1) + 1 FROM product_options WHERE product_id = ?`, o.ProductID); err != nil {
		return domain.ProductOption{}, persistErr("next option index", err)
	}
	res, err := q.exec(ctx, `INSERT INTO product_options(product_id, label, price_delta_cents, order_index)
		VALUES(?, ?, ?, ?)`, o.ProductID, o.Label, o.PriceDeltaCents, next)
	if err != nil {
		return domain.ProductOption{}, persistErr("insert option", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.ProductOption{}, persistErr("insert option", err)
	}
	o.ID = id
	o.OrderIndex = next
	return o, nil
}

// UpdateOption sets an option's label and price delta.
func (q *Queries) UpdateOption(ctx context.Context, o domain.ProductOption) error {
	_, err := q.exec(ctx, `UPDATE product_options SET label = ?, price_delta_cents = ? WHERE id = ?`,
		o.Label, o.PriceDeltaCents, o.ID)
	return persistErr("update option", err)
}

// DeleteOption removes an option and closes the gap in the display order.
func (q *Queries) DeleteOption(ctx context.Context, id, productID int64) error {
	if _, err := q.exec(ctx, `DELETE FROM product_options WHERE id = ?`, id); err != nil {
		return persistErr("delete option", err)
	}
	ids, err := q.optionIDs(ctx, productID)
	if err != nil {
		return err
	}
	return q.setOptionOrder(ctx, ids)
}

// DeleteOptionsForProduct removes every option of a product.
func (q *Queries) DeleteOptionsForProduct(ctx context.Context, productID int64) error {
	_, err := q.exec(ctx, `DELETE FROM product_options WHERE product_id = ?`, productID)
	return persistErr("delete product options", err)
}

func (q *Queries) optionIDs(ctx context.Context, productID int64) ([]int64, error) {
	ids := []int64{}
	if err := q.selectAll(ctx, &ids,
		`SELECT id FROM product_options WHERE product_id = ? ORDER BY order_index, id`, productID); err != nil {
		return nil, persistErr("list option ids", err)
	}
	return ids, nil
}

func (q *Queries) setOptionOrder(ctx context.Context, ids []int64) error {
	for idx, id := range ids {
		if _, err := q.exec(ctx, `UPDATE product_options SET order_index = ? WHERE id = ?`, idx, id); err != nil {
			return persistErr("reorder options", err)
		}
	}
	return nil
}

// ReorderOptions applies a requested order within one product.
func (q *Queries) ReorderOptions(ctx context.Context, productID int64, requested []int64) error {
	current, err := q.optionIDs(ctx, productID)
	if err != nil {
		return err
	}
	return q.setOptionOrder(ctx, MergeOrder(current, requested))
}

// DecStock subtracts qty from the tracked product id in one clamped
// statement and reads the result back on the same handle.
//
// The clamp happens in SQL so two decrements can never both read the same
// starting value. Returns nil when id is not a tracked product.
func (q *Queries) DecStock(ctx context.Context, id int64, qty float64) (*domain.StockState, error) {
	if _, err := q.exec(ctx,
		`UPDATE products SET stock_qty = MAX(0, COALESCE(stock_qty, 0) - ?)
		 WHERE id = ? AND track_stock = 1`, qty, id); err != nil {
		return nil, persistErr("decrement stock", err)
	}
	return q.stockState(ctx, id)
}

// IncStock adds qty to the tracked product id and reads the result back.
// Returns nil when id is not a tracked product.
func (q *Queries) IncStock(ctx context.Context, id int64, qty float64) (*domain.StockState, error) {
	if _, err := q.exec(ctx,
		`UPDATE products SET stock_qty = COALESCE(stock_qty, 0) + ?
		 WHERE id = ? AND track_stock = 1`, qty, id); err != nil {
		return nil, persistErr("increment stock", err)
	}
	return q.stockState(ctx, id)
}

func (q *Queries) stockState(ctx context.Context, id int64) (*domain.StockState, error) {
	var row struct {
		Qty float64 `db:"qty"`
		Min float64 `db:"min_stock"`
	}
	err := q.get(ctx, &row, `SELECT COALESCE(stock_qty, 0) AS qty, min_stock
		FROM products WHERE id = ? AND track_stock = 1`, id)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("read stock", err)
	}
	return &domain.StockState{Qty: row.Qty, Min: row.Min}, nil
}

// LowStock returns tracked products at or below their threshold.
func (q *Queries) LowStock(ctx context.Context) ([]domain.LowStock, error) {
	rows := []domain.LowStock{}
	err := q.selectAll(ctx, &rows, `SELECT name, COALESCE(stock_qty, 0) AS stock_qty, min_stock
		FROM products
		WHERE track_stock = 1 AND COALESCE(stock_qty, 0) <= min_stock
		ORDER BY name, id`)
	if err != nil {
		return nil, persistErr("low stock", err)
	}
	return rows, nil
}

// GetRate returns the configured rate for mode, or nil if none is set.
func (q *Queries) GetRate(ctx context.Context, mode domain.Mode) (*domain.Rate, error) {
	var r domain.Rate
	err := q.get(ctx, &r, `SELECT mode, label, rate_per_hour_cents FROM ps_rates WHERE mode = ?`, string(mode))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get rate", err)
	}
	return &r, nil
}

// ListRates returns every configured rate ordered by mode.
func (q *Queries) ListRates(ctx context.Context) ([]domain.Rate, error) {
	rates := []domain.Rate{}
	if err := q.selectAll(ctx, &rates,
		`SELECT mode, label, rate_per_hour_cents FROM ps_rates ORDER BY mode`); err != nil {
		return nil, persistErr("list rates", err)
	}
	return rates, nil
}

// UpsertRate creates or replaces the rate for r.Mode.
func (q *Queries) UpsertRate(ctx context.Context, r domain.Rate) error {
	_, err := q.exec(ctx, `INSERT INTO ps_rates(mode, label, rate_per_hour_cents) VALUES(?, ?, ?)
		ON CONFLICT(mode) DO UPDATE SET label = excluded.label, rate_per_hour_cents = excluded.rate_per_hour_cents`,
		string(r.Mode), r.Label, r.PerHourCents)
	return persistErr("upsert rate", err)
}

// SeedRate inserts r only when no rate exists for its mode.
func (q *Queries) SeedRate(ctx context.Context, r domain.Rate) (bool, error) {
	res, err := q.exec(ctx, `INSERT OR IGNORE INTO ps_rates(mode, label, rate_per_hour_cents) VALUES(?, ?, ?)`,
		string(r.Mode), r.Label, r.PerHourCents)
	if err != nil {
		return false, persistErr("seed rate", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistErr("seed rate", err)
	}
	return n > 0, nil
}

// MergeOrder returns current reordered by requested: requested ids that
// exist come first, then the remaining ids in their current order.
func MergeOrder(current, requested []int64) []int64 {
	allowed := make(map[int64]bool, len(current))
	for _, id := range current {
		allowed[id] = true
	}
	out := make([]int64, 0, len(current))
	used := make(map[int64]bool, len(current))
	for _, id := range requested {
		if allowed[id] && !used[id] {
			out = append(out, id)
			used[id] = true
		}
	}
	for _, id := range current {
		if !used[id] {
			out = append(out, id)
		}
	}
	return out
}
