// Package purchase records supplier invoices.
package purchase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/session"
	"github.com/roach88/tabengine/internal/store"
)

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 250

// Input describes a new purchase. A zero PurchasedAt means now.
type Input struct {
	Supplier    string
	AmountCents int64
	PurchasedAt time.Time
	InvoiceNo   string
	Notes       string
}

// Service manages the purchases ledger.
type Service struct {
	store *store.Store
	clock session.Clock
}

// New creates a Service. A nil clock uses the system clock.
func New(s *store.Store, clock session.Clock) *Service {
	if clock == nil {
		clock = session.SystemClock{}
	}
	return &Service{store: s, clock: clock}
}

// Create validates and stores a purchase, auditing it in the same
// transaction.
func (s *Service) Create(ctx context.Context, in Input, actor string) (domain.Purchase, error) {
	supplier := strings.TrimSpace(in.Supplier)
	if supplier == "" {
		return domain.Purchase{}, domain.NewValidationError("supplier", "supplier is required")
	}
	if in.AmountCents <= 0 {
		return domain.Purchase{}, domain.NewValidationError("amount_cents", "amount must be positive, got %d", in.AmountCents)
	}

	now := s.clock.Now().UTC()
	at := in.PurchasedAt
	if at.IsZero() {
		at = now
	}
	p := domain.Purchase{
		PurchasedAt: at.UTC(),
		Supplier:    supplier,
		InvoiceNo:   strings.TrimSpace(in.InvoiceNo),
		AmountCents: in.AmountCents,
		Notes:       strings.TrimSpace(in.Notes),
		RecordedBy:  domain.CleanActor(actor),
		CreatedAt:   now,
	}
	extra := p.InvoiceNo
	if extra == "" {
		extra = p.Notes
	}
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		id, err := tx.InsertPurchase(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id
		return tx.AppendAudit(ctx, domain.AuditEntry{
			At: now, Actor: p.RecordedBy, Action: "create_purchase",
			EntityType: "purchase", EntityName: supplier,
			NewValue: fmt.Sprint(p.AmountCents), Extra: extra,
		})
	})
	if err != nil {
		return domain.Purchase{}, err
	}
	return p, nil
}

// List returns up to limit purchases, newest first. A limit <= 0 uses
// DefaultListLimit.
func (s *Service) List(ctx context.Context, limit int) ([]domain.Purchase, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.store.ListPurchases(ctx, limit)
}

// Get returns one purchase. A missing id wraps domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (domain.Purchase, error) {
	p, err := s.store.GetPurchase(ctx, id)
	if err != nil {
		return domain.Purchase{}, err
	}
	if p == nil {
		return domain.Purchase{}, fmt.Errorf("purchase %d: %w", id, domain.ErrNotFound)
	}
	return *p, nil
}
