package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/roach88/tabengine/internal/domain"
)

type auditRow struct {
	ID         int64          `db:"id"`
	TS         string         `db:"ts"`
	Username   string         `db:"username"`
	Action     string         `db:"action"`
	EntityType sql.NullString `db:"entity_type"`
	EntityName sql.NullString `db:"entity_name"`
	OldValue   sql.NullString `db:"old_value"`
	NewValue   sql.NullString `db:"new_value"`
	Extra      sql.NullString `db:"extra"`
}

// AppendAudit inserts one audit_log row. Rows are never updated or
// deleted. A zero At is stamped with the current time.
func (q *Queries) AppendAudit(ctx context.Context, e domain.AuditEntry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := q.exec(ctx, `INSERT INTO audit_log
		(ts, username, action, entity_type, entity_name, old_value, new_value, extra)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(at), domain.CleanActor(e.Actor), e.Action,
		nullString(e.EntityType), nullString(e.EntityName),
		nullString(e.OldValue), nullString(e.NewValue), nullString(e.Extra))
	return persistErr("append audit", err)
}

// ListAudit returns the newest entries first. A limit <= 0 returns all.
func (q *Queries) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	query := `SELECT id, ts, username, action, entity_type, entity_name, old_value, new_value, extra
		FROM audit_log ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows := []auditRow{}
	if err := q.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, persistErr("list audit", err)
	}
	out := make([]domain.AuditEntry, 0, len(rows))
	for _, r := range rows {
		at, _ := parseTime(r.TS)
		out = append(out, domain.AuditEntry{
			ID:         r.ID,
			At:         at,
			Actor:      r.Username,
			Action:     r.Action,
			EntityType: r.EntityType.String,
			EntityName: r.EntityName.String,
			OldValue:   r.OldValue.String,
			NewValue:   r.NewValue.String,
			Extra:      r.Extra.String,
		})
	}
	return out, nil
}
