// Package session implements the lifecycle of one query: candidate
// accumulation, completion tracking, and non-blocking result polling.
package session

import (
	"fmt"
	"sync"

	"github.com/dshills/shortlist-mcp/internal/topk"
	"github.com/dshills/shortlist-mcp/pkg/types"
)

// Session tracks one query from accumulation to a ranked result. All methods
// are non-blocking and safe for concurrent use: the caller thread drives
// feed/done/poll while workers deliver scored batches.
//
// State transitions:
//
//	Pending -> Accumulating            on creation
//	Accumulating -> Finalizing         on Finish (feed closed)
//	Finalizing -> Ready                when the last outstanding batch lands
//	any non-terminal -> Cancelled      on Cancel (superseded or aborted)
//	any non-terminal -> Failed         on Fail
type Session struct {
	generation uint64
	query      types.Query

	mu      sync.Mutex
	state   types.SessionState
	pending int // batches enqueued but not yet delivered
	sel     *topk.Selector
	result  []types.RankedMatch
	err     error
}

// New creates a session for one query. The session enters Accumulating
// immediately; Pending is never observable from outside.
func New(generation uint64, q types.Query) *Session {
	q = q.Normalized()
	return &Session{
		generation: generation,
		query:      q,
		state:      types.StateAccumulating,
		sel:        topk.New(q.Limit),
	}
}

// Generation returns the generation id this session was created under.
func (s *Session) Generation() uint64 {
	return s.generation
}

// Query returns the normalized query this session ranks against.
func (s *Session) Query() types.Query {
	return s.query
}

// State returns the current lifecycle state.
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NoteBatch registers one fed batch before it is handed to the dispatcher.
// It fails once the feed is closed or the session reached a terminal state.
func (s *Session) NoteBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case types.StateAccumulating:
		s.pending++
		return nil
	case types.StateCancelled:
		return types.ErrSuperseded
	case types.StateFinalizing, types.StateReady:
		return types.ErrFeedClosed
	default:
		return types.ErrFeedClosed
	}
}

// Finish closes the feed: the candidate source is exhausted. Outstanding
// batches still complete; the session becomes Ready when the last one lands
// (immediately, if none are outstanding).
func (s *Session) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case types.StateAccumulating:
		if s.pending == 0 {
			s.ready()
			return nil
		}
		s.state = types.StateFinalizing
		return nil
	case types.StateCancelled:
		return types.ErrSuperseded
	default:
		return types.ErrSessionDone
	}
}

// Deliver accepts one scored batch from a worker and counts it against the
// outstanding total. Deliveries to a terminal session are discarded cheaply;
// that is how stale generations die without locking the pipeline.
func (s *Session) Deliver(matches []types.RankedMatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return
	}

	s.sel.InsertAll(matches)
	if s.pending > 0 {
		s.pending--
	}
	if s.state == types.StateFinalizing && s.pending == 0 {
		s.ready()
	}
}

// Fail moves the session to Failed with the given cause. The first failure
// wins; later failures and deliveries are ignored.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return
	}
	s.state = types.StateFailed
	s.err = fmt.Errorf("session %d: %w", s.generation, err)
}

// Cancel retires the session because a newer query superseded it or the
// caller aborted. In-flight worker output for it is discarded on arrival.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return
	}
	s.state = types.StateCancelled
	s.err = types.ErrSuperseded
}

// Poll answers the non-blocking "is the ranked result ready yet" question.
// It returns types.ErrNotReady while work is outstanding, the ranked list
// once Ready (repeated polls return the same cached list without
// re-scoring), types.ErrSuperseded after cancellation, and the failure
// cause after an error.
func (s *Session) Poll() ([]types.RankedMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case types.StateReady:
		return s.result, nil
	case types.StateCancelled, types.StateFailed:
		return nil, s.err
	default:
		return nil, types.ErrNotReady
	}
}

// Partial returns the current top-K view over the batches scored so far.
// Valid in any state; after Ready it equals the final result.
func (s *Session) Partial() []types.RankedMatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == types.StateReady {
		return s.result
	}
	return s.sel.Results()
}

// ready caches the final ranked list. Caller holds s.mu.
func (s *Session) ready() {
	s.result = s.sel.Results()
	s.state = types.StateReady
}
