package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/store"
)

//go:embed schema.cue
var schemaCUE string

// File is a decoded catalog seed file.
type File struct {
	Categories []FileCategory `json:"categories"`
	Rates      []FileRate     `json:"rates"`
}

// FileCategory is one category of a seed file.
type FileCategory struct {
	Name     string        `json:"name"`
	Products []FileProduct `json:"products"`
}

// FileProduct is one product of a seed file.
type FileProduct struct {
	Name         string       `json:"name"`
	PriceCents   int64        `json:"price_cents"`
	Customizable bool         `json:"customizable"`
	TrackStock   bool         `json:"track_stock"`
	StockQty     float64      `json:"stock_qty"`
	MinStock     float64      `json:"min_stock"`
	Options      []FileOption `json:"options"`
}

// FileOption is one option of a seed file product.
type FileOption struct {
	Label           string `json:"label"`
	PriceDeltaCents int64  `json:"price_delta_cents"`
}

// FileRate is one rental rate of a seed file.
type FileRate struct {
	Mode         string `json:"mode"`
	Label        string `json:"label"`
	PerHourCents int64  `json:"rate_per_hour_cents"`
}

// LoadError is a seed file that failed to parse or validate.
type LoadError struct {
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// LoadFile reads and validates a CUE seed file.
func LoadFile(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(path, src)
}

// Parse validates src against the seed schema and decodes it. Every
// field the schema does not know is rejected.
func Parse(filename string, src []byte) (*File, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var f File
	if err := v.Decode(&f); err != nil {
		return nil, formatCUEError(err)
	}
	return &f, nil
}

func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// ImportSummary counts what an import created and updated.
type ImportSummary struct {
	CategoriesCreated int `json:"categories_created"`
	ProductsCreated   int `json:"products_created"`
	ProductsUpdated   int `json:"products_updated"`
	OptionsCreated    int `json:"options_created"`
	OptionsUpdated    int `json:"options_updated"`
	RatesSet          int `json:"rates_set"`
}

// Import upserts a seed file in one transaction. Categories, products and
// options are matched by name; existing rows are updated in place and new
// ones appended to the display order.
func (c *Catalog) Import(ctx context.Context, f *File, actor string) (ImportSummary, error) {
	var sum ImportSummary
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		sum = ImportSummary{}
		for _, fc := range f.Categories {
			if err := c.importCategory(ctx, tx, fc, &sum); err != nil {
				return err
			}
		}
		for _, fr := range f.Rates {
			mode, err := domain.ParseMode(fr.Mode)
			if err != nil {
				return err
			}
			label := domain.CleanName(fr.Label)
			if label == "" {
				label = mode.Label()
			}
			if err := tx.UpsertRate(ctx, domain.Rate{Mode: mode, Label: label, PerHourCents: fr.PerHourCents}); err != nil {
				return err
			}
			sum.RatesSet++
		}
		return tx.AppendAudit(ctx, domain.AuditEntry{
			Actor: actor, Action: "import_catalog", EntityType: "catalog",
			Extra: fmt.Sprintf("categories+%d products+%d/~%d options+%d/~%d rates=%d",
				sum.CategoriesCreated, sum.ProductsCreated, sum.ProductsUpdated,
				sum.OptionsCreated, sum.OptionsUpdated, sum.RatesSet),
		})
	})
	if err != nil {
		return ImportSummary{}, err
	}
	c.changed()
	return sum, nil
}

func (c *Catalog) importCategory(ctx context.Context, tx *store.Tx, fc FileCategory, sum *ImportSummary) error {
	name := domain.CleanName(fc.Name)
	if name == "" {
		return domain.NewValidationError("name", "category name is required")
	}
	cat, err := tx.CategoryByName(ctx, name)
	if err != nil {
		return err
	}
	if cat == nil {
		created, err := tx.InsertCategory(ctx, name)
		if err != nil {
			return err
		}
		cat = &created
		sum.CategoriesCreated++
	}

	for _, fp := range fc.Products {
		pname := domain.CleanName(fp.Name)
		if pname == "" {
			return domain.NewValidationError("name", "product name is required in %q", name)
		}
		p := domain.Product{
			CategoryID:   cat.ID,
			Name:         pname,
			PriceCents:   fp.PriceCents,
			Customizable: fp.Customizable || len(fp.Options) > 0,
			TrackStock:   fp.TrackStock,
		}
		if fp.TrackStock {
			qty := fp.StockQty
			p.StockQty = &qty
			p.MinStock = fp.MinStock
		}

		existing, err := tx.ProductInCategory(ctx, cat.ID, pname)
		if err != nil {
			return err
		}
		if existing == nil {
			if p, err = tx.InsertProduct(ctx, p); err != nil {
				return err
			}
			sum.ProductsCreated++
		} else {
			p.ID = existing.ID
			if err := tx.UpdateProduct(ctx, p); err != nil {
				return err
			}
			sum.ProductsUpdated++
		}

		for _, fo := range fp.Options {
			label := domain.CleanName(fo.Label)
			if label == "" {
				return domain.NewValidationError("label", "option label is required on %q", pname)
			}
			opt, err := tx.OptionByLabel(ctx, p.ID, label)
			if err != nil {
				return err
			}
			if opt == nil {
				if _, err := tx.InsertOption(ctx, domain.ProductOption{
					ProductID: p.ID, Label: label, PriceDeltaCents: fo.PriceDeltaCents,
				}); err != nil {
					return err
				}
				sum.OptionsCreated++
				continue
			}
			opt.PriceDeltaCents = fo.PriceDeltaCents
			if err := tx.UpdateOption(ctx, *opt); err != nil {
				return err
			}
			sum.OptionsUpdated++
		}
	}
	return nil
}
