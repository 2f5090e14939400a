package catalog

import (
	"context"
	"fmt"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/store"
)

// Rate returns the configured rate of mode, or nil if none is set.
func (c *Catalog) Rate(ctx context.Context, mode domain.Mode) (*domain.Rate, error) {
	return c.store.GetRate(ctx, mode)
}

// RateTx is Rate inside a transaction.
func (c *Catalog) RateTx(ctx context.Context, tx *store.Tx, mode domain.Mode) (*domain.Rate, error) {
	return tx.GetRate(ctx, mode)
}

// Rates returns every configured rate.
func (c *Catalog) Rates(ctx context.Context) ([]domain.Rate, error) {
	return c.store.ListRates(ctx)
}

// SetRate creates or changes the hourly rate of a mode. An empty label
// defaults to the mode's display label.
func (c *Catalog) SetRate(ctx context.Context, mode domain.Mode, label string, perHourCents int64, actor string) error {
	if _, err := domain.ParseMode(string(mode)); err != nil {
		return err
	}
	if perHourCents < 0 {
		return domain.NewValidationError("rate_per_hour_cents", "rate must not be negative, got %d", perHourCents)
	}
	if label = domain.CleanName(label); label == "" {
		label = mode.Label()
	}

	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		old, err := tx.GetRate(ctx, mode)
		if err != nil {
			return err
		}
		oldValue := ""
		if old != nil {
			oldValue = fmt.Sprint(old.PerHourCents)
		}
		if err := tx.UpsertRate(ctx, domain.Rate{Mode: mode, Label: label, PerHourCents: perHourCents}); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, domain.AuditEntry{
			Actor: actor, Action: "update_ps_rate", EntityType: "ps_rate", EntityName: string(mode),
			OldValue: oldValue, NewValue: fmt.Sprint(perHourCents),
		})
	})
	if err != nil {
		return err
	}
	c.changed()
	return nil
}

// SeedRates inserts a rate for every mode in defaults that has none yet.
// Existing rates are never overwritten. It returns the seeded modes.
func (c *Catalog) SeedRates(ctx context.Context, defaults map[domain.Mode]int64) ([]domain.Mode, error) {
	var seeded []domain.Mode
	err := c.store.WithTx(ctx, func(tx *store.Tx) error {
		seeded = seeded[:0]
		for _, mode := range domain.Modes {
			cents, ok := defaults[mode]
			if !ok {
				continue
			}
			inserted, err := tx.SeedRate(ctx, domain.Rate{Mode: mode, Label: mode.Label(), PerHourCents: cents})
			if err != nil {
				return err
			}
			if inserted {
				seeded = append(seeded, mode)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seeded, nil
}
