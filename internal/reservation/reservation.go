// Package reservation books tables for a future time.
package reservation

import (
	"context"
	"strings"
	"time"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/session"
	"github.com/roach88/tabengine/internal/store"
)

// Input describes a new reservation.
type Input struct {
	Name        string
	Phone       string
	PartySize   int
	ReservedFor time.Time
	TableCode   string
	Notes       string
	Status      string
}

// Service manages reservations.
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

// NormalizeStatus maps any input to a known status; unknown and empty
// values become pending.
func NormalizeStatus(s string) domain.ReservationStatus {
	switch st := domain.ReservationStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case domain.ReservationPending, domain.ReservationSeated, domain.ReservationCancelled:
		return st
	default:
		return domain.ReservationPending
	}
}

// List returns every reservation ordered by booked time.
func (s *Service) List(ctx context.Context) ([]domain.Reservation, error) {
	return s.store.ListReservations(ctx)
}

// Create validates and stores a reservation.
func (s *Service) Create(ctx context.Context, in Input, actor string) (domain.Reservation, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Reservation{}, domain.NewValidationError("name", "reservation name is required")
	}
	if in.ReservedFor.IsZero() {
		return domain.Reservation{}, domain.NewValidationError("reserved_for", "reservation time is required")
	}
	party := in.PartySize
	if party == 0 {
		party = 1
	}
	if party < 1 {
		return domain.Reservation{}, domain.NewValidationError("party_size", "party size must be at least 1, got %d", in.PartySize)
	}

	r := domain.Reservation{
		Name:        name,
		Phone:       strings.TrimSpace(in.Phone),
		PartySize:   party,
		ReservedFor: in.ReservedFor.UTC(),
		TableCode:   domain.NormalizeTableCode(in.TableCode),
		Status:      NormalizeStatus(in.Status),
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   s.clock.Now().UTC(),
		CreatedBy:   domain.CleanActor(actor),
	}
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		id, err := tx.InsertReservation(ctx, r)
		r.ID = id
		return err
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return r, nil
}

// UpdateStatus changes the status of a reservation and reports whether it
// exists.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (bool, error) {
	var ok bool
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		ok, err = tx.UpdateReservationStatus(ctx, id, NormalizeStatus(status))
		return err
	})
	return ok, err
}

// Delete removes a reservation and reports whether it existed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		ok, err = tx.DeleteReservation(ctx, id)
		return err
	})
	return ok, err
}
