package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a requested row doesn't exist
	ErrNotFound = errors.New("not found")
)

// Store defines the interface for persisting selection weights across
// process restarts. The in-memory usage store is the source of truth at
// runtime; this layer only loads it at startup and records writes through.
type Store interface {
	// LoadWeights returns all persisted path weights and the selection clock.
	LoadWeights(ctx context.Context) (map[string]float64, int64, error)

	// RecordSelection persists one selection: the path's new weight and the
	// advanced clock, atomically.
	RecordSelection(ctx context.Context, path string, weight float64, clock int64) error

	// ReplaceWeights atomically replaces every persisted weight. Used after
	// a decay pass rewrites the whole table.
	ReplaceWeights(ctx context.Context, weights map[string]float64) error

	// Close releases the underlying database.
	Close() error
}
