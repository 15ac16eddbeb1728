package training

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/mixlogic-core/internal/learning"
)

// Store persists the manager state row.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}

// SQLiteStore implements Store using the training_state table.
//
// The snapshot is stored encoded in a single row; mode and counters are
// duplicated into columns so they can be queried without decoding.
type SQLiteStore struct {
	db       *sql.DB
	encoding Encoding
}

// NewSQLiteStore creates a store that encodes snapshots with enc.
// An empty enc defaults to CBOR.
func NewSQLiteStore(db *sql.DB, enc Encoding) *SQLiteStore {
	if enc == "" {
		enc = EncodingCBOR
	}
	return &SQLiteStore{db: db, encoding: enc}
}

// Save replaces the persisted state with snap.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	payload, err := Marshal(snap, s.encoding)
	if err != nil {
		return fmt.Errorf("encoding training state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO training_state (id, encoding, payload, mode, total_decisions, correct_predictions, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			encoding = excluded.encoding,
			payload = excluded.payload,
			mode = excluded.mode,
			total_decisions = excluded.total_decisions,
			correct_predictions = excluded.correct_predictions,
			updated_at = excluded.updated_at`,
		string(s.encoding),
		payload,
		string(snap.Mode),
		snap.TotalDecisions,
		snap.CorrectPredictions,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving training state: %w", err)
	}
	return nil
}

// Load reads the persisted state. It returns ErrStateNotFound when nothing
// has been saved yet. The row is decoded with the encoding it was saved
// with, whatever the store's current encoding.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	var (
		enc     string
		payload []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT encoding, payload FROM training_state WHERE id = 1`,
	).Scan(&enc, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrStateNotFound
		}
		return Snapshot{}, fmt.Errorf("querying training state: %w", err)
	}

	encoding, err := ParseEncoding(enc)
	if err != nil {
		return Snapshot{}, err
	}
	return Unmarshal(payload, encoding)
}

// Checkpointer saves and restores a manager across restarts. The learning
// log goes to its own repository; the state row holds everything else.
type Checkpointer struct {
	State    Store
	Learning learning.Repository
}

// Save persists the manager.
func (c Checkpointer) Save(ctx context.Context, m *Manager) error {
	snap := m.ExportTrainingData()

	if err := c.Learning.Save(ctx, snap.Learning); err != nil {
		return fmt.Errorf("saving learning data: %w", err)
	}
	snap.Learning = learning.Snapshot{}
	return c.State.Save(ctx, snap)
}

// Restore loads persisted state into the manager. It returns false with no
// error when nothing has been saved yet.
func (c Checkpointer) Restore(ctx context.Context, m *Manager) (bool, error) {
	snap, err := c.State.Load(ctx)
	if errors.Is(err, ErrStateNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	learned, err := c.Learning.Load(ctx)
	switch {
	case errors.Is(err, learning.ErrSnapshotNotFound):
		learned = learning.Snapshot{
			Version:     learning.SnapshotVersion,
			Preferences: learning.DefaultPreferences(),
		}
	case err != nil:
		return false, fmt.Errorf("loading learning data: %w", err)
	}
	snap.Learning = learned

	if err := m.ImportTrainingData(snap); err != nil {
		return false, err
	}
	return true, nil
}
