package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore creates a new SQLite-backed weight store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadWeights returns all persisted path weights and the selection clock
func (s *SQLiteStore) LoadWeights(ctx context.Context) (map[string]float64, int64, error) {
	var clock int64
	err := s.db.QueryRowContext(ctx, "SELECT clock FROM clock WHERE id = 0").Scan(&clock)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read clock: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT path, weight FROM selections")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load weights: %w", err)
	}
	defer func() { _ = rows.Close() }()

	weights := make(map[string]float64)
	for rows.Next() {
		var path string
		var weight float64
		if err := rows.Scan(&path, &weight); err != nil {
			return nil, 0, fmt.Errorf("failed to scan weight row: %w", err)
		}
		weights[path] = weight
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return weights, clock, nil
}

// RecordSelection persists one selection atomically
func (s *SQLiteStore) RecordSelection(ctx context.Context, path string, weight float64, clock int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO selections (path, weight, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) "+
			"ON CONFLICT(path) DO UPDATE SET weight = excluded.weight, updated_at = CURRENT_TIMESTAMP",
		path, weight)
	if err != nil {
		return fmt.Errorf("failed to upsert selection: %w", err)
	}

	_, err = tx.ExecContext(ctx, "UPDATE clock SET clock = ? WHERE id = 0", clock)
	if err != nil {
		return fmt.Errorf("failed to advance clock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit selection: %w", err)
	}
	return nil
}

// ReplaceWeights atomically replaces every persisted weight
func (s *SQLiteStore) ReplaceWeights(ctx context.Context, weights map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM selections"); err != nil {
		return fmt.Errorf("failed to clear selections: %w", err)
	}

	for path, weight := range weights {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO selections (path, weight) VALUES (?, ?)", path, weight)
		if err != nil {
			return fmt.Errorf("failed to insert selection %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit weights: %w", err)
	}
	return nil
}

// Weight returns the persisted weight for one path, or ErrNotFound.
// Used by tests and diagnostics; the hot read path goes through the
// in-memory store.
func (s *SQLiteStore) Weight(ctx context.Context, path string) (float64, error) {
	var weight float64
	err := s.db.QueryRowContext(ctx, "SELECT weight FROM selections WHERE path = ?", path).Scan(&weight)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read weight: %w", err)
	}
	return weight, nil
}
