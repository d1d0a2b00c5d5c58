// Package engine is the coordination layer of the ranking pipeline. It owns
// the generation counter, the single live query session, the scoring worker
// pool, and the usage store, and exposes the feed/done/poll surface callers
// drive.
package engine

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dshills/shortlist-mcp/internal/dispatch"
	"github.com/dshills/shortlist-mcp/internal/frecency"
	"github.com/dshills/shortlist-mcp/internal/scorer"
	"github.com/dshills/shortlist-mcp/internal/session"
	"github.com/dshills/shortlist-mcp/pkg/types"
)

// Config controls engine construction. The zero value is usable: an
// in-memory usage store and one worker per CPU.
type Config struct {
	// Workers is the scoring pool size. <= 0 means runtime.NumCPU().
	Workers int
	// Usage is the selection-history store. nil means a fresh in-memory
	// store with no persistence.
	Usage *frecency.Store
}

// Engine runs at most one live query at a time. Starting a new query
// supersedes the previous one: its session is cancelled and any of its
// batches still in the pool are dropped by the workers.
type Engine struct {
	usage  *frecency.Store
	scorer *scorer.Scorer
	pool   *dispatch.Pool

	generation atomic.Uint64

	mu      sync.Mutex
	current *session.Session
	closed  bool
}

// Handle identifies one started query. All feed/poll traffic goes through
// the handle, so a caller holding a stale handle gets ErrSuperseded instead
// of silently mixing into a newer query's results.
type Handle struct {
	s *session.Session

	mu         sync.Mutex
	candidates map[int]types.Candidate
}

// Generation returns the generation id of the query this handle belongs to.
func (h *Handle) Generation() uint64 {
	return h.s.Generation()
}

// Lookup resolves a candidate index from a ranked result back to the fed
// candidate.
func (h *Handle) Lookup(index int) (types.Candidate, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.candidates[index]
	return c, ok
}

func (h *Handle) remember(batch []types.Candidate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range batch {
		h.candidates[c.Index] = c
	}
}

// New builds an engine. The caller owns cfg.Usage's backing storage (if
// any) and closes it after Close.
func New(cfg Config) (*Engine, error) {
	usage := cfg.Usage
	if usage == nil {
		var err error
		usage, err = frecency.New(frecency.Config{})
		if err != nil {
			return nil, err
		}
	}

	e := &Engine{
		usage:  usage,
		scorer: scorer.New(usage),
	}
	e.pool = dispatch.New(cfg.Workers, e.scorer, e.generation.Load)
	return e, nil
}

// Query starts a new query, superseding the live one if any. The previous
// session is cancelled immediately; its callers see ErrSuperseded on their
// next poll.
func (e *Engine) Query(text, contextPath string, limit int) (*Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, types.ErrPoolClosed
	}
	if e.current != nil {
		e.current.Cancel()
	}

	gen := e.generation.Add(1)
	s := session.New(gen, types.Query{Text: text, ContextPath: contextPath, Limit: limit})
	e.current = s

	return &Handle{s: s, candidates: make(map[int]types.Candidate)}, nil
}

// Feed submits one candidate batch for scoring. The batch is copied, so the
// caller may reuse its slice. Feeding a superseded handle returns
// ErrSuperseded; feeding after Done returns ErrFeedClosed.
func (e *Engine) Feed(h *Handle, batch []types.Candidate) error {
	if len(batch) == 0 {
		return nil
	}
	if err := h.s.NoteBatch(); err != nil {
		return err
	}

	owned := make([]types.Candidate, len(batch))
	copy(owned, batch)
	h.remember(owned)

	return e.pool.Submit(dispatch.Task{
		Query: h.s.Query(),
		Batch: owned,
		Sink:  h.s,
	})
}

// Done closes the handle's feed. The session becomes Ready once every
// outstanding batch has been scored.
func (e *Engine) Done(h *Handle) error {
	return h.s.Finish()
}

// Poll reports the query's result without blocking: ErrNotReady while
// scoring is outstanding, the ranked list once ready, ErrSuperseded after a
// newer query took over, or the failure cause.
func (e *Engine) Poll(h *Handle) ([]types.RankedMatch, error) {
	return h.s.Poll()
}

// Partial returns the ranking over the batches scored so far, in any state.
func (e *Engine) Partial(h *Handle) []types.RankedMatch {
	return h.s.Partial()
}

// State returns the handle's session state.
func (e *Engine) State(h *Handle) types.SessionState {
	return h.s.State()
}

// Abort cancels the handle's query without starting a replacement.
func (e *Engine) Abort(h *Handle) {
	h.s.Cancel()
}

// Fail marks the handle's query failed because its candidate source broke.
// The cause is wrapped so callers can tell provider failures apart from
// supersession.
func (e *Engine) Fail(h *Handle, err error) {
	var perr *types.ProviderError
	if !errors.As(err, &perr) {
		err = &types.ProviderError{Err: err}
	}
	h.s.Fail(err)
}

// RecordSelection feeds a confirmed pick back into the usage store so the
// chosen path ranks higher in future queries.
func (e *Engine) RecordSelection(path string) error {
	return e.usage.RecordSelection(path)
}

// Usage exposes the usage store, mainly for status reporting.
func (e *Engine) Usage() *frecency.Store {
	return e.usage
}

// Generation returns the current live generation id.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// Close cancels the live query and shuts the worker pool down, waiting for
// in-flight scoring to finish.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	if e.current != nil {
		e.current.Cancel()
	}
	e.mu.Unlock()

	return e.pool.Close()
}
