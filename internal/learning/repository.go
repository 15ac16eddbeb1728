package learning

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository persists learning snapshots.
// This abstraction allows different implementations (SQLite, mock, etc.).
type Repository interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}

// SQLiteRepository implements Repository using SQLite.
//
// Events are stored one row each with the event JSON as payload; patterns
// are stored as columns; preferences and counters live in a single row.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save replaces the persisted state with snap in a single transaction.
func (r *SQLiteRepository) Save(ctx context.Context, snap Snapshot) error { //nolint:gocognit // three tables written in one transaction
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, stmt := range []string{
		`DELETE FROM learning_events`,
		`DELETE FROM learning_patterns`,
		`DELETE FROM learning_preferences`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing learning tables: %w", err)
		}
	}

	eventStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO learning_events (id, seq, recorded_at, action, payload)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing event insert: %w", err)
	}
	defer eventStmt.Close()

	for i, e := range snap.Events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshalling event %s: %w", e.ID, err)
		}
		if _, err := eventStmt.ExecContext(ctx, e.ID, i, e.Timestamp.UTC().Format(time.RFC3339Nano), e.Action, string(payload)); err != nil {
			return fmt.Errorf("inserting event %s: %w", e.ID, err)
		}
	}

	patternStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO learning_patterns (action, bucket, frequency, outcomes, success_rate, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing pattern insert: %w", err)
	}
	defer patternStmt.Close()

	for _, p := range snap.Patterns {
		if _, err := patternStmt.ExecContext(ctx,
			p.Action, p.Bucket, p.Frequency, p.Outcomes, p.SuccessRate,
			p.LastSeen.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("inserting pattern %s/%s: %w", p.Action, p.Bucket, err)
		}
	}

	prefs, err := json.Marshal(snap.Preferences)
	if err != nil {
		return fmt.Errorf("marshalling preferences: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO learning_preferences (
			id, version, payload, total_events, approvals, rejections, corrections, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Version,
		string(prefs),
		snap.Counters.TotalEvents,
		snap.Counters.Approvals,
		snap.Counters.Rejections,
		snap.Counters.Corrections,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("inserting preferences: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing learning snapshot: %w", err)
	}
	return nil
}

// Load reads the persisted state. It returns ErrSnapshotNotFound when
// nothing has been saved yet.
func (r *SQLiteRepository) Load(ctx context.Context) (Snapshot, error) {
	var (
		snap  Snapshot
		prefs string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT version, payload, total_events, approvals, rejections, corrections
		FROM learning_preferences WHERE id = 1`,
	).Scan(&snap.Version, &prefs, &snap.Counters.TotalEvents, &snap.Counters.Approvals,
		&snap.Counters.Rejections, &snap.Counters.Corrections)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrSnapshotNotFound
		}
		return Snapshot{}, fmt.Errorf("querying learning preferences: %w", err)
	}
	if err := json.Unmarshal([]byte(prefs), &snap.Preferences); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshalling preferences: %w", err)
	}

	if snap.Events, err = r.loadEvents(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Patterns, err = r.loadPatterns(ctx); err != nil {
		return Snapshot{}, err
	}
	snap.ExportedAt = time.Now().UTC()
	return snap, nil
}

func (r *SQLiteRepository) loadEvents(ctx context.Context) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM learning_events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying learning events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning learning event: %w", err)
		}
		var e Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("unmarshalling learning event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating learning events: %w", err)
	}
	return events, nil
}

func (r *SQLiteRepository) loadPatterns(ctx context.Context) ([]Pattern, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT action, bucket, frequency, outcomes, success_rate, last_seen
		FROM learning_patterns ORDER BY action, bucket`)
	if err != nil {
		return nil, fmt.Errorf("querying learning patterns: %w", err)
	}
	defer rows.Close()

	patterns := []Pattern{}
	for rows.Next() {
		var (
			p        Pattern
			lastSeen string
		)
		if err := rows.Scan(&p.Action, &p.Bucket, &p.Frequency, &p.Outcomes, &p.SuccessRate, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning learning pattern: %w", err)
		}
		if p.LastSeen, err = time.Parse(time.RFC3339Nano, lastSeen); err != nil {
			return nil, fmt.Errorf("parsing pattern last_seen: %w", err)
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating learning patterns: %w", err)
	}
	return patterns, nil
}
