package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
)

// InsertFixes stores records in one transaction and returns how many were
// written. Records are validated first; nothing is written on a schema error.
func (db *DB) InsertFixes(ctx context.Context, records []l1fixes.Record) (int, error) {
	if err := l1fixes.Validate(records); err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO fixes (entity_id, latitude, longitude, time_ns, attrs_json)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, r := range records {
		var attrs sql.NullString
		if len(r.Attrs) > 0 {
			b, err := json.Marshal(r.Attrs)
			if err != nil {
				return 0, fmt.Errorf("fix %d attrs: %w", i, err)
			}
			attrs = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.EntityID, r.Latitude, r.Longitude, toNanos(r.Time), attrs); err != nil {
			return 0, fmt.Errorf("failed to insert fix %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Fixes loads stored fixes ordered by entity, then time, then insertion
// order. With no ids every entity is returned.
func (db *DB) Fixes(ctx context.Context, entityIDs ...string) ([]l1fixes.Record, error) {
	query := `SELECT entity_id, latitude, longitude, time_ns, attrs_json FROM fixes`
	args := make([]interface{}, 0, len(entityIDs))
	if len(entityIDs) > 0 {
		query += ` WHERE entity_id IN (?` + strings.Repeat(", ?", len(entityIDs)-1) + `)`
		for _, id := range entityIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY entity_id, time_ns, fix_id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []l1fixes.Record
	for rows.Next() {
		var (
			r     l1fixes.Record
			ns    int64
			attrs sql.NullString
		)
		if err := rows.Scan(&r.EntityID, &r.Latitude, &r.Longitude, &ns, &attrs); err != nil {
			return nil, err
		}
		r.Time = fromNanos(ns)
		if attrs.Valid {
			if err := json.Unmarshal([]byte(attrs.String), &r.Attrs); err != nil {
				return nil, fmt.Errorf("fix attrs for %s: %w", r.EntityID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EntityCount returns the number of distinct entities with stored fixes.
func (db *DB) EntityCount(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT entity_id) FROM fixes`).Scan(&n)
	return n, err
}
