package store

import (
	"context"
	"database/sql"
)

// Setting returns the value stored under key and whether it exists.
func (q *Queries) Setting(ctx context.Context, key string) (string, bool, error) {
	var v sql.NullString
	err := q.get(ctx, &v, `SELECT value FROM settings WHERE key = ?`, key)
	if isNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, persistErr("get setting", err)
	}
	return v.String, true, nil
}

// SetSetting stores value under key.
func (q *Queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.exec(ctx, `INSERT OR REPLACE INTO settings(key, value) VALUES(?, ?)`, key, value)
	return persistErr("set setting", err)
}
