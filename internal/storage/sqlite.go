//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"popgen/internal/genotype"
	"popgen/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps run records in a runs table and histories as one row per
// generation, so a trajectory can be read back in generation order.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at_utc TEXT NOT NULL,
	schema_version INTEGER NOT NULL,
	codec_version INTEGER NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at_utc);
CREATE TABLE IF NOT EXISTS generations (
	run_id TEXT NOT NULL,
	generation INTEGER NOT NULL,
	sexed INTEGER NOT NULL,
	total INTEGER NOT NULL,
	schema_version INTEGER NOT NULL,
	codec_version INTEGER NOT NULL,
	payload BLOB NOT NULL,
	PRIMARY KEY (run_id, generation)
);`

// Init opens the database and creates the schema. A database written by a
// different schema version is rejected with ErrVersionMismatch.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlite %s: %w", s.path, err)
	}
	s.db = db
	return nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return err
	}
	switch version {
	case 0:
		if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
			return err
		}
		_, err := db.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, CurrentSchemaVersion))
		return err
	case CurrentSchemaVersion:
		return nil
	default:
		return fmt.Errorf("%w: database schema %d, want %d", ErrVersionMismatch, version, CurrentSchemaVersion)
	}
}

func (s *SQLiteStore) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, created_at_utc, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAtUTC, run.SchemaVersion, run.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	db, err := s.conn()
	if err != nil {
		return model.RunRecord{}, false, err
	}
	var payload []byte
	switch err := db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload); {
	case errors.Is(err, sql.ErrNoRows):
		return model.RunRecord{}, false, nil
	case err != nil:
		return model.RunRecord{}, false, err
	}
	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("run %s: %w", id, err)
	}
	return run, true, nil
}

// ListRuns orders by creation time and then by insertion order, so runs
// created within the same instant come back newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, payload FROM runs
		ORDER BY created_at_utc DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", id, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveHistory replaces the stored trajectory of runID inside one
// transaction.
func (s *SQLiteStore) SaveHistory(ctx context.Context, runID string, history []genotype.Data) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM generations WHERE run_id = ?`, runID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO generations (run_id, generation, sexed, total, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, data := range history {
		payload, err := EncodeGeneration(data)
		if err != nil {
			return fmt.Errorf("generation %d: %w", i, err)
		}
		sexed := 0
		if data.Sexed {
			sexed = 1
		}
		if _, err := stmt.ExecContext(ctx, runID, i, sexed, data.Total(), CurrentSchemaVersion, CurrentCodecVersion, payload); err != nil {
			return fmt.Errorf("generation %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetHistory reports false when no generation rows exist for runID.
func (s *SQLiteStore) GetHistory(ctx context.Context, runID string) ([]genotype.Data, bool, error) {
	db, err := s.conn()
	if err != nil {
		return nil, false, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT generation, schema_version, codec_version, payload FROM generations
		WHERE run_id = ? ORDER BY generation`, runID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var history []genotype.Data
	for rows.Next() {
		var (
			generation int
			version    model.VersionedRecord
			payload    []byte
		)
		if err := rows.Scan(&generation, &version.SchemaVersion, &version.CodecVersion, &payload); err != nil {
			return nil, false, err
		}
		if generation != len(history) {
			return nil, false, fmt.Errorf("run %s: generation %d is missing", runID, len(history))
		}
		data, err := DecodeGeneration(payload, version)
		if err != nil {
			return nil, false, fmt.Errorf("run %s generation %d: %w", runID, generation, err)
		}
		history = append(history, data)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return history, len(history) > 0, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db := s.db
	s.db = nil
	if db == nil {
		return nil
	}
	return db.Close()
}
