// Package dispatch runs batch scoring off the caller's thread on a small
// worker pool. Workers re-check the live generation before scoring and
// before publishing, so a superseded query's work is dropped cheaply instead
// of being force-stopped.
package dispatch

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/shortlist-mcp/internal/scorer"
	"github.com/dshills/shortlist-mcp/pkg/types"
)

// Sink receives scored batches for one generation. Implemented by the query
// session; deliveries to a retired session are no-ops.
type Sink interface {
	Generation() uint64
	Deliver(matches []types.RankedMatch)
	Fail(err error)
}

// Task is one unit of scoring work: a candidate batch plus the query
// snapshot it is scored against.
type Task struct {
	Query types.Query
	Batch []types.Candidate
	Sink  Sink
}

// Pool drains a queue of scoring tasks with a fixed set of workers. Submit
// never blocks: the queue is unbounded and workers block only while waiting
// for work. Each task makes progress independently, so a slow batch never
// delays delivery of other batches of the same generation.
type Pool struct {
	scorer *scorer.Scorer
	live   func() uint64

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Task
	closed bool

	g errgroup.Group
}

// New starts a pool of workers scoring with sc. live reports the currently
// live generation; tasks whose sink belongs to an older generation are
// discarded. workers <= 0 defaults to runtime.NumCPU().
func New(workers int, sc *scorer.Scorer, live func() uint64) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		scorer: sc,
		live:   live,
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < workers; i++ {
		p.g.Go(p.work)
	}
	return p
}

// Submit enqueues one task. It returns types.ErrPoolClosed after Close.
func (p *Pool) Submit(t Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return types.ErrPoolClosed
	}
	p.queue = append(p.queue, t)
	p.cond.Signal()
	return nil
}

// Close stops accepting work, lets the workers drain the queue, and waits
// for them to exit.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	return p.g.Wait()
}

// work is one worker loop: pop, score, publish.
func (p *Pool) work() error {
	for {
		t, ok := p.next()
		if !ok {
			return nil
		}
		p.run(t)
	}
}

// next blocks until a task is available or the pool is closed and drained.
func (p *Pool) next() (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return Task{}, false
	}
	t := p.queue[0]
	p.queue = p.queue[1:]
	return t, true
}

// run scores one task and publishes the result if its generation is still
// live. A panic while scoring fails only this task's session; other
// generations are unaffected.
func (p *Pool) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			t.Sink.Fail(fmt.Errorf("scoring batch: %v", r))
		}
	}()

	gen := t.Sink.Generation()
	if p.live != nil && p.live() != gen {
		// Stale before we even started; skip the scoring work entirely.
		return
	}

	matches := p.scorer.ScoreBatch(t.Query, t.Batch)

	if p.live != nil && p.live() != gen {
		// Superseded mid-flight; drop instead of merging into a newer session.
		return
	}
	t.Sink.Deliver(matches)
}
