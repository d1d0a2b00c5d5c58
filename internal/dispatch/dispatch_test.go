package dispatch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/shortlist-mcp/internal/scorer"
	"github.com/dshills/shortlist-mcp/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingSink collects deliveries and failures for assertions.
type recordingSink struct {
	gen uint64

	mu        sync.Mutex
	delivered [][]types.RankedMatch
	failures  []error
}

func (r *recordingSink) Generation() uint64 { return r.gen }

func (r *recordingSink) Deliver(matches []types.RankedMatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, matches)
}

func (r *recordingSink) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func (r *recordingSink) deliveries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delivered)
}

func (r *recordingSink) failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}

func batch(displays ...string) []types.Candidate {
	out := make([]types.Candidate, len(displays))
	for i, d := range displays {
		out[i] = types.Candidate{Index: i, Display: d, Path: d}
	}
	return out
}

func TestPool_ScoresAndDelivers(t *testing.T) {
	sink := &recordingSink{gen: 1}
	p := New(2, scorer.New(nil), func() uint64 { return 1 })

	require.NoError(t, p.Submit(Task{
		Query: types.Query{Text: "main", Limit: 10},
		Batch: batch("src/main.rs", "src/lib.rs"),
		Sink:  sink,
	}))
	require.NoError(t, p.Close())

	require.Equal(t, 1, sink.deliveries())
	require.Len(t, sink.delivered[0], 1)
	assert.Equal(t, 0, sink.delivered[0][0].CandidateIndex)
}

func TestPool_CloseDrainsQueue(t *testing.T) {
	sink := &recordingSink{gen: 1}
	p := New(1, scorer.New(nil), func() uint64 { return 1 })

	for i := 0; i < 20; i++ {
		require.NoError(t, p.Submit(Task{
			Query: types.Query{Text: "a", Limit: 5},
			Batch: batch("a.go", "b.go"),
			Sink:  sink,
		}))
	}
	require.NoError(t, p.Close())

	assert.Equal(t, 20, sink.deliveries(), "Close waits for every queued task")
}

func TestPool_SubmitAfterCloseFails(t *testing.T) {
	p := New(1, scorer.New(nil), func() uint64 { return 1 })
	require.NoError(t, p.Close())

	err := p.Submit(Task{Sink: &recordingSink{gen: 1}})
	assert.ErrorIs(t, err, types.ErrPoolClosed)
}

func TestPool_CloseIsIdempotent(t *testing.T) {
	p := New(1, scorer.New(nil), func() uint64 { return 1 })
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

func TestPool_DropsStaleGenerations(t *testing.T) {
	var live atomic.Uint64
	live.Store(2)

	stale := &recordingSink{gen: 1}
	current := &recordingSink{gen: 2}
	p := New(2, scorer.New(nil), live.Load)

	require.NoError(t, p.Submit(Task{
		Query: types.Query{Text: "a", Limit: 5},
		Batch: batch("a.go"),
		Sink:  stale,
	}))
	require.NoError(t, p.Submit(Task{
		Query: types.Query{Text: "a", Limit: 5},
		Batch: batch("a.go"),
		Sink:  current,
	}))
	require.NoError(t, p.Close())

	assert.Equal(t, 0, stale.deliveries(), "work for a superseded generation is dropped")
	assert.Equal(t, 1, current.deliveries())
}

// panicSink triggers a panic inside the worker by being delivered to.
type panicSink struct {
	recordingSink
}

func (p *panicSink) Deliver([]types.RankedMatch) {
	panic("sink blew up")
}

func TestPool_RecoversFromPanic(t *testing.T) {
	sink := &panicSink{recordingSink: recordingSink{gen: 1}}
	healthy := &recordingSink{gen: 1}
	p := New(1, scorer.New(nil), func() uint64 { return 1 })

	require.NoError(t, p.Submit(Task{
		Query: types.Query{Text: "a", Limit: 5},
		Batch: batch("a.go"),
		Sink:  sink,
	}))
	require.NoError(t, p.Submit(Task{
		Query: types.Query{Text: "a", Limit: 5},
		Batch: batch("a.go"),
		Sink:  healthy,
	}))
	require.NoError(t, p.Close())

	assert.Equal(t, 1, sink.failed(), "panic surfaces as a session failure")
	assert.Equal(t, 1, healthy.deliveries(), "the worker survives to run later tasks")
}

func TestPool_ConcurrentSubmitters(t *testing.T) {
	sink := &recordingSink{gen: 1}
	p := New(4, scorer.New(nil), func() uint64 { return 1 })

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = p.Submit(Task{
					Query: types.Query{Text: "go", Limit: 5},
					Batch: batch("main.go", "other.rs"),
					Sink:  sink,
				})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, p.Close())

	// Every submitted task is scored exactly once.
	require.Eventually(t, func() bool { return sink.deliveries() == 200 },
		time.Second, 10*time.Millisecond)
}
