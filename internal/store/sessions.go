package store

import (
	"context"
	"time"

	"github.com/roach88/tabengine/internal/domain"
)

type sessionRow struct {
	TableCode    string `db:"table_code"`
	Mode         string `db:"mode"`
	StartedAt    string `db:"started_at"`
	TotalSeconds int64  `db:"total_seconds"`
}

// UpsertSession writes the persisted state of a running session.
func (q *Queries) UpsertSession(ctx context.Context, s domain.Session) error {
	_, err := q.exec(ctx, `INSERT OR REPLACE INTO ps_sessions(table_code, mode, started_at, total_seconds)
		VALUES(?, ?, ?, ?)`, s.TableCode, string(s.Mode), formatTime(s.StartedAt), s.AccumulatedSeconds)
	return persistErr("upsert session", err)
}

// DeleteSession removes the session row of table, if any.
func (q *Queries) DeleteSession(ctx context.Context, table string) error {
	_, err := q.exec(ctx, `DELETE FROM ps_sessions WHERE table_code = ?`, table)
	return persistErr("delete session", err)
}

// ListSessions returns every persisted session ordered by table.
//
// A started_at that cannot be parsed is returned as the zero time; the
// caller decides what "now" means for it.
func (q *Queries) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows := []sessionRow{}
	if err := q.selectAll(ctx, &rows,
		`SELECT table_code, mode, started_at, total_seconds FROM ps_sessions ORDER BY table_code`); err != nil {
		return nil, persistErr("list sessions", err)
	}
	out := make([]domain.Session, 0, len(rows))
	for _, r := range rows {
		started, err := parseTime(r.StartedAt)
		if err != nil {
			started = time.Time{}
		}
		out = append(out, domain.Session{
			TableCode:          r.TableCode,
			Mode:               domain.Mode(r.Mode),
			StartedAt:          started,
			AccumulatedSeconds: r.TotalSeconds,
		})
	}
	return out, nil
}
