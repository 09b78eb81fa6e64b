package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
	"github.com/banshee-data/encounter.report/internal/encounter/l3pairs"
	"github.com/banshee-data/encounter.report/internal/encounter/l4episodes"
	"github.com/banshee-data/encounter.report/internal/encounter/pipeline"
	"github.com/banshee-data/encounter.report/internal/version"
)

// ErrRunNotFound is returned when a run id has no stored row.
var ErrRunNotFound = errors.New("analysis run not found")

// Run is the summary row of one stored analysis.
type Run struct {
	ID         uuid.UUID
	Started    time.Time
	Entity1    string
	Entity2    string
	ConfigJSON string
	Version    string
	GitSHA     string
	PPAs1      int
	PPAs2      int
	Skipped1   int
	Skipped2   int
	Pairs      int
	Events     int
	Error      string // set for entity pairs that could not be analysed
}

func (r *Run) String() string {
	if r.Error != "" {
		return fmt.Sprintf("%s %s/%s failed: %s", r.ID, r.Entity1, r.Entity2, r.Error)
	}
	return fmt.Sprintf("%s %s/%s: %d+%d PPAs, %d pairs, %d episodes",
		r.ID, r.Entity1, r.Entity2, r.PPAs1, r.PPAs2, r.Pairs, r.Events)
}

// RecordRun stores a complete result, its PPAs, pair table and episodes in
// one transaction. configJSON is kept verbatim for provenance.
func (db *DB) RecordRun(ctx context.Context, res *pipeline.Result, configJSON string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO analysis_runs (
			run_id, started_ns, entity1, entity2, config_json, version, git_sha,
			ppa_count1, ppa_count2, skipped_count1, skipped_count2, pair_count, event_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID.String(), toNanos(res.Started), res.Entity1, res.Entity2, configJSON,
		version.Version, version.GitSHA,
		len(res.PPAs1), len(res.PPAs2), len(res.Skipped1), len(res.Skipped2),
		len(res.Pairs), len(res.Events),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := insertPPAs(ctx, tx, res.RunID, res.PPAs1, res.PPAs2); err != nil {
		return err
	}
	if err := insertPairs(ctx, tx, res.RunID, res.PairTable); err != nil {
		return err
	}
	if err := insertEvents(ctx, tx, "interaction_events", res.RunID, res.Events); err != nil {
		return err
	}
	if err := insertEvents(ctx, tx, "proximity_events", res.RunID, res.ProximityEvents); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordFailure stores a run row for an entity pair whose analysis failed,
// typically with an incompatibility error from a batch.
func (db *DB) RecordFailure(ctx context.Context, entity1, entity2 string, cause error, configJSON string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.ExecContext(ctx, `INSERT INTO analysis_runs (
			run_id, started_ns, entity1, entity2, config_json, version, git_sha, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), toNanos(time.Now()), entity1, entity2, configJSON,
		version.Version, version.GitSHA, cause.Error(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert failed run: %w", err)
	}
	return id, nil
}

func insertPPAs(ctx context.Context, tx *sql.Tx, runID uuid.UUID, seqs ...[]l2ppa.PPA) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ppas (
			run_id, entity_id, seq, t_start_ns, t_end_ns, start_x, start_y, end_x, end_y,
			major_axis, minor_axis, rotation_deg, speed, sizing_speed, direction, boundary_wkb
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ppas := range seqs {
		for _, p := range ppas {
			boundary, err := wkb.Marshal(p.Polygon)
			if err != nil {
				return fmt.Errorf("encode PPA %s/%d: %w", p.EntityID, p.Seq, err)
			}
			_, err = stmt.ExecContext(ctx,
				runID.String(), p.EntityID, p.Seq, toNanos(p.TStart), toNanos(p.TEnd),
				p.StartPos[0], p.StartPos[1], p.EndPos[0], p.EndPos[1],
				p.MajorAxis, p.MinorAxis, p.RotationDeg, p.Speed, p.SizingSpeed, p.Direction,
				boundary,
			)
			if err != nil {
				return fmt.Errorf("failed to insert PPA %s/%d: %w", p.EntityID, p.Seq, err)
			}
		}
	}
	return nil
}

func insertPairs(ctx context.Context, tx *sql.Tx, runID uuid.UUID, records []l3pairs.PairRecord) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO intersection_pairs (
			run_id, pair_no,
			p1_entity, p1_seq, p1_t_start_ns, p1_t_end_ns, p1_start_x, p1_start_y, p1_end_x, p1_end_y, p1_speed, p1_direction,
			p2_entity, p2_seq, p2_t_start_ns, p2_t_end_ns, p2_start_x, p2_start_y, p2_end_x, p2_end_y, p2_speed, p2_direction,
			diff_speed, diff_direction, diff_time_minutes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	anchor := func(a l3pairs.Anchor) []interface{} {
		return []interface{}{
			a.EntityID, a.Seq, toNanos(a.TStart), toNanos(a.TEnd),
			a.StartPos[0], a.StartPos[1], a.EndPos[0], a.EndPos[1], a.Speed, a.Direction,
		}
	}
	for i, rec := range records {
		args := []interface{}{runID.String(), i + 1}
		args = append(args, anchor(rec.P1)...)
		args = append(args, anchor(rec.P2)...)
		args = append(args, rec.DiffSpeed, rec.DiffDirection, rec.DiffTimeMinutes)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert pair %d: %w", i+1, err)
		}
	}
	return nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, table string, runID uuid.UUID, events []l4episodes.Event) error {
	// table is one of two constants chosen by RecordRun
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (
			run_id, event_no, entity1, entity2, start_ns, end_ns, duration_minutes
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		_, err := stmt.ExecContext(ctx, runID.String(), ev.No, ev.Entity1, ev.Entity2,
			toNanos(ev.Start), toNanos(ev.End), ev.DurationMinutes)
		if err != nil {
			return fmt.Errorf("failed to insert %s %d: %w", table, ev.No, err)
		}
	}
	return nil
}

const runColumns = `run_id, started_ns, entity1, entity2, COALESCE(config_json, ''),
	COALESCE(version, ''), COALESCE(git_sha, ''), ppa_count1, ppa_count2,
	skipped_count1, skipped_count2, pair_count, event_count, COALESCE(error, '')`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r       Run
		id      string
		started int64
	)
	err := s.Scan(&id, &started, &r.Entity1, &r.Entity2, &r.ConfigJSON, &r.Version, &r.GitSHA,
		&r.PPAs1, &r.PPAs2, &r.Skipped1, &r.Skipped2, &r.Pairs, &r.Events, &r.Error)
	if err != nil {
		return Run{}, err
	}
	if r.ID, err = uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("stored run id %q: %w", id, err)
	}
	r.Started = fromNanos(started)
	return r, nil
}

// Runs lists stored runs, newest first.
func (db *DB) Runs(ctx context.Context) ([]Run, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM analysis_runs ORDER BY started_ns DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run loads one run row.
func (db *DB) Run(ctx context.Context, id uuid.UUID) (Run, error) {
	r, err := scanRun(db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM analysis_runs WHERE run_id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return r, err
}

// DeleteRun removes a run and, through the foreign keys, everything it owns.
func (db *DB) DeleteRun(ctx context.Context, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM analysis_runs WHERE run_id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return nil
}

func (db *DB) events(ctx context.Context, table string, runID uuid.UUID) ([]l4episodes.Event, error) {
	rows, err := db.QueryContext(ctx, `SELECT event_no, entity1, entity2, start_ns, end_ns, duration_minutes
		FROM `+table+` WHERE run_id = ? ORDER BY event_no`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []l4episodes.Event
	for rows.Next() {
		var (
			ev         l4episodes.Event
			start, end int64
		)
		if err := rows.Scan(&ev.No, &ev.Entity1, &ev.Entity2, &start, &end, &ev.DurationMinutes); err != nil {
			return nil, err
		}
		ev.Start, ev.End = fromNanos(start), fromNanos(end)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Events returns the interaction episodes of a run.
func (db *DB) Events(ctx context.Context, runID uuid.UUID) ([]l4episodes.Event, error) {
	return db.events(ctx, "interaction_events", runID)
}

// ProximityEvents returns the fix-proximity episodes of a run.
func (db *DB) ProximityEvents(ctx context.Context, runID uuid.UUID) ([]l4episodes.Event, error) {
	return db.events(ctx, "proximity_events", runID)
}

// PairRecords returns the stored pair table of a run in its original order.
func (db *DB) PairRecords(ctx context.Context, runID uuid.UUID) ([]l3pairs.PairRecord, error) {
	rows, err := db.QueryContext(ctx, `SELECT
			p1_entity, p1_seq, p1_t_start_ns, p1_t_end_ns, p1_start_x, p1_start_y, p1_end_x, p1_end_y, p1_speed, p1_direction,
			p2_entity, p2_seq, p2_t_start_ns, p2_t_end_ns, p2_start_x, p2_start_y, p2_end_x, p2_end_y, p2_speed, p2_direction,
			diff_speed, diff_direction, diff_time_minutes
		FROM intersection_pairs WHERE run_id = ? ORDER BY pair_no`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []l3pairs.PairRecord
	for rows.Next() {
		var (
			rec            l3pairs.PairRecord
			s1, e1, s2, e2 int64
		)
		err := rows.Scan(
			&rec.P1.EntityID, &rec.P1.Seq, &s1, &e1,
			&rec.P1.StartPos[0], &rec.P1.StartPos[1], &rec.P1.EndPos[0], &rec.P1.EndPos[1],
			&rec.P1.Speed, &rec.P1.Direction,
			&rec.P2.EntityID, &rec.P2.Seq, &s2, &e2,
			&rec.P2.StartPos[0], &rec.P2.StartPos[1], &rec.P2.EndPos[0], &rec.P2.EndPos[1],
			&rec.P2.Speed, &rec.P2.Direction,
			&rec.DiffSpeed, &rec.DiffDirection, &rec.DiffTimeMinutes,
		)
		if err != nil {
			return nil, err
		}
		rec.P1.TStart, rec.P1.TEnd = fromNanos(s1), fromNanos(e1)
		rec.P2.TStart, rec.P2.TEnd = fromNanos(s2), fromNanos(e2)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PPABoundaries returns the stored PPA polygons of one entity in sequence
// order.
func (db *DB) PPABoundaries(ctx context.Context, runID uuid.UUID, entityID string) ([]orb.Polygon, error) {
	rows, err := db.QueryContext(ctx, `SELECT seq, boundary_wkb FROM ppas
		WHERE run_id = ? AND entity_id = ? ORDER BY seq`, runID.String(), entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orb.Polygon
	for rows.Next() {
		var (
			seq int
			b   []byte
		)
		if err := rows.Scan(&seq, &b); err != nil {
			return nil, err
		}
		geom, err := wkb.Unmarshal(b)
		if err != nil {
			return nil, fmt.Errorf("decode PPA %s/%d: %w", entityID, seq, err)
		}
		poly, ok := geom.(orb.Polygon)
		if !ok {
			return nil, fmt.Errorf("PPA %s/%d: stored geometry is %s", entityID, seq, geom.GeoJSONType())
		}
		out = append(out, poly)
	}
	return out, rows.Err()
}
