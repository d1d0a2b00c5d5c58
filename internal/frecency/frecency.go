// Package frecency implements the engine's usage store: a process-wide table
// of selection weights that biases ranking toward paths the user has picked
// before.
package frecency

import (
	"context"
	"fmt"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/shortlist-mcp/internal/storage"
)

const defaultScoreCacheSize = 4096

// Config contains configuration for the usage store
type Config struct {
	// DecayEvery halves all weights after every Nth selection. Zero disables
	// decay; weights then grow monotonically.
	DecayEvery int
	// DecayFactor is the multiplier applied on a decay pass (default 0.5).
	DecayFactor float64
	// Storage optionally persists weights across restarts. Nil keeps the
	// store memory-only.
	Storage storage.Store
	// ScoreCacheSize bounds the cache of computed frequency scores.
	ScoreCacheSize int
}

// Store maps a path to its selection weight. Writes happen only on selection
// events from the caller's thread; worker threads read concurrently and never
// mutate. Readers may observe the pre- or post-update value of a weight but
// never a torn one.
type Store struct {
	mu      sync.RWMutex
	weights map[string]float64
	clock   int64

	cfg   Config
	cache *lru.Cache[string, float64]
}

// New creates a usage store. If cfg.Storage is set, previously persisted
// weights are loaded before the store is returned.
func New(cfg Config) (*Store, error) {
	if cfg.DecayFactor <= 0 || cfg.DecayFactor >= 1 {
		cfg.DecayFactor = 0.5
	}
	if cfg.ScoreCacheSize <= 0 {
		cfg.ScoreCacheSize = defaultScoreCacheSize
	}

	cache, err := lru.New[string, float64](cfg.ScoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create score cache: %w", err)
	}

	s := &Store{
		weights: make(map[string]float64),
		cfg:     cfg,
		cache:   cache,
	}

	if cfg.Storage != nil {
		weights, clock, err := cfg.Storage.LoadWeights(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted weights: %w", err)
		}
		s.weights = weights
		s.clock = clock
	}

	return s, nil
}

// RecordSelection notes that path was picked by the user. The weight grows by
// one per selection; if decay is configured, every DecayEvery-th selection
// first halves all weights so stale history stops dominating.
func (s *Store) RecordSelection(path string) error {
	if path == "" {
		return nil
	}

	s.mu.Lock()
	s.clock++
	decayed := s.cfg.DecayEvery > 0 && s.clock%int64(s.cfg.DecayEvery) == 0
	if decayed {
		for p, w := range s.weights {
			s.weights[p] = w * s.cfg.DecayFactor
		}
	}
	weight := s.weights[path] + 1
	s.weights[path] = weight
	clock := s.clock
	s.mu.Unlock()

	if decayed {
		s.cache.Purge()
	} else {
		s.cache.Remove(path)
	}

	if s.cfg.Storage != nil {
		if decayed {
			s.mu.RLock()
			snapshot := make(map[string]float64, len(s.weights))
			for p, w := range s.weights {
				snapshot[p] = w
			}
			s.mu.RUnlock()
			if err := s.cfg.Storage.ReplaceWeights(context.Background(), snapshot); err != nil {
				return fmt.Errorf("failed to persist decayed weights: %w", err)
			}
			return nil
		}
		if err := s.cfg.Storage.RecordSelection(context.Background(), path, weight, clock); err != nil {
			return fmt.Errorf("failed to persist selection: %w", err)
		}
	}

	return nil
}

// Weight returns the raw selection weight for path, zero if never selected.
func (s *Store) Weight(path string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weights[path]
}

// Score returns log1p of the path's weight: zero for unseen paths and
// monotonically non-decreasing in selection count. Computed scores are cached
// until the next selection touches the path.
func (s *Store) Score(path string) float64 {
	if v, ok := s.cache.Get(path); ok {
		return v
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	w := s.weights[path]
	if w == 0 {
		return 0
	}
	score := math.Log1p(w)
	// Adding under the read lock keeps the cache entry ordered before the
	// writer's invalidation for this path.
	s.cache.Add(path, score)
	return score
}

// Len returns the number of distinct paths with recorded selections.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.weights)
}

// Clock returns the total number of selections recorded.
func (s *Store) Clock() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock
}
