package store

import (
	"context"
	"fmt"

	"github.com/roach88/tabengine/internal/domain"
)

type reservationRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Phone       string `db:"phone"`
	PartySize   int    `db:"party_size"`
	ReservedFor string `db:"reserved_for"`
	TableCode   string `db:"table_code"`
	Status      string `db:"status"`
	Notes       string `db:"notes"`
	CreatedAt   string `db:"created_at"`
	CreatedBy   string `db:"created_by"`
}

// ListReservations returns reservations ordered by their booked time.
func (q *Queries) ListReservations(ctx context.Context) ([]domain.Reservation, error) {
	rows := []reservationRow{}
	if err := q.selectAll(ctx, &rows, `SELECT id, name, phone, party_size, reserved_for, table_code,
		status, notes, created_at, created_by
		FROM reservations ORDER BY reserved_for, id`); err != nil {
		return nil, persistErr("list reservations", err)
	}
	out := make([]domain.Reservation, 0, len(rows))
	for _, r := range rows {
		reservedFor, err := parseTime(r.ReservedFor)
		if err != nil {
			return nil, persistErr("list reservations", fmt.Errorf("reservation %d reserved_for: %w", r.ID, err))
		}
		created, _ := parseTime(r.CreatedAt)
		out = append(out, domain.Reservation{
			ID:          r.ID,
			Name:        r.Name,
			Phone:       r.Phone,
			PartySize:   r.PartySize,
			ReservedFor: reservedFor,
			TableCode:   r.TableCode,
			Status:      domain.ReservationStatus(r.Status),
			Notes:       r.Notes,
			CreatedAt:   created,
			CreatedBy:   r.CreatedBy,
		})
	}
	return out, nil
}

// InsertReservation stores r and returns its id.
func (q *Queries) InsertReservation(ctx context.Context, r domain.Reservation) (int64, error) {
	res, err := q.exec(ctx, `INSERT INTO reservations
		(name, phone, party_size, reserved_for, table_code, status, notes, created_at, created_by)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Phone, r.PartySize, formatTime(r.ReservedFor), r.TableCode,
		string(r.Status), r.Notes, formatTime(r.CreatedAt), r.CreatedBy)
	if err != nil {
		return 0, persistErr("insert reservation", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, persistErr("insert reservation", err)
	}
	return id, nil
}

// UpdateReservationStatus sets the status of a reservation and reports
// whether it existed.
func (q *Queries) UpdateReservationStatus(ctx context.Context, id int64, status domain.ReservationStatus) (bool, error) {
	res, err := q.exec(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return false, persistErr("update reservation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistErr("update reservation", err)
	}
	return n > 0, nil
}

// DeleteReservation removes a reservation and reports whether it existed.
func (q *Queries) DeleteReservation(ctx context.Context, id int64) (bool, error) {
	res, err := q.exec(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return false, persistErr("delete reservation", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistErr("delete reservation", err)
	}
	return n > 0, nil
}
