package engine

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/shortlist-mcp/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{Workers: 2})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, e.Close()) })
	return e
}

func candidates(start int, displays ...string) []types.Candidate {
	out := make([]types.Candidate, len(displays))
	for i, d := range displays {
		out[i] = types.Candidate{Index: start + i, Display: d, Path: d}
	}
	return out
}

// awaitReady polls until the session settles, the way a real caller does.
func awaitReady(t *testing.T, e *Engine, h *Handle) []types.RankedMatch {
	t.Helper()
	var got []types.RankedMatch
	require.Eventually(t, func() bool {
		matches, err := e.Poll(h)
		if errors.Is(err, types.ErrNotReady) {
			return false
		}
		require.NoError(t, err)
		got = matches
		return true
	}, 2*time.Second, time.Millisecond)
	return got
}

func TestQueryFeedDonePoll(t *testing.T) {
	e := newEngine(t)

	h, err := e.Query("main", "src/lib.rs", 10)
	require.NoError(t, err)
	require.NoError(t, e.Feed(h, candidates(0, "src/main.rs", "src/lib.rs", "README.md")))
	require.NoError(t, e.Done(h))

	got := awaitReady(t, e, h)
	require.Len(t, got, 1, "only src/main.rs contains the query as a subsequence")
	assert.Equal(t, 0, got[0].CandidateIndex)

	c, ok := h.Lookup(got[0].CandidateIndex)
	require.True(t, ok)
	assert.Equal(t, "src/main.rs", c.Path)
}

func TestEmptyFeedIsReadyImmediately(t *testing.T) {
	e := newEngine(t)

	h, err := e.Query("anything", "", 10)
	require.NoError(t, err)
	require.NoError(t, e.Done(h))

	got := awaitReady(t, e, h)
	assert.Empty(t, got)
}

func TestFeedAfterDoneFails(t *testing.T) {
	e := newEngine(t)

	h, err := e.Query("q", "", 10)
	require.NoError(t, err)
	require.NoError(t, e.Done(h))

	err = e.Feed(h, candidates(0, "a.go"))
	assert.ErrorIs(t, err, types.ErrFeedClosed)
}

func TestNewQuerySupersedesOldHandle(t *testing.T) {
	e := newEngine(t)

	old, err := e.Query("first", "", 10)
	require.NoError(t, err)
	require.NoError(t, e.Feed(old, candidates(0, "first.go")))

	fresh, err := e.Query("second", "", 10)
	require.NoError(t, err)

	_, err = e.Poll(old)
	assert.ErrorIs(t, err, types.ErrSuperseded)
	assert.ErrorIs(t, e.Feed(old, candidates(1, "late.go")), types.ErrSuperseded)
	assert.ErrorIs(t, e.Done(old), types.ErrSuperseded)

	// The fresh query is unaffected by the old handle's traffic.
	require.NoError(t, e.Feed(fresh, candidates(0, "second.go")))
	require.NoError(t, e.Done(fresh))
	got := awaitReady(t, e, fresh)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].CandidateIndex)
}

func TestBatchOrderDoesNotChangeResult(t *testing.T) {
	e := newEngine(t)

	displays := []string{
		"cmd/shortlist/main.go",
		"internal/engine/engine.go",
		"internal/session/session.go",
		"internal/dispatch/dispatch.go",
		"internal/scorer/scorer.go",
		"pkg/types/candidate.go",
	}

	run := func(order []int) []types.RankedMatch {
		h, err := e.Query("in", "", 3)
		require.NoError(t, err)
		for _, i := range order {
			require.NoError(t, e.Feed(h, []types.Candidate{
				{Index: i, Display: displays[i], Path: displays[i]},
			}))
		}
		require.NoError(t, e.Done(h))
		return awaitReady(t, e, h)
	}

	base := run([]int{0, 1, 2, 3, 4, 5})
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 5; trial++ {
		order := rng.Perm(len(displays))
		assert.Equal(t, base, run(order), "ranking must not depend on arrival order")
	}
}

func TestLimitBoundsResult(t *testing.T) {
	e := newEngine(t)

	h, err := e.Query("go", "", 2)
	require.NoError(t, err)
	require.NoError(t, e.Feed(h, candidates(0, "a.go", "b.go", "c.go", "d.go", "e.go")))
	require.NoError(t, e.Done(h))

	got := awaitReady(t, e, h)
	assert.Len(t, got, 2)
}

func TestRecordSelectionBoostsFutureRanking(t *testing.T) {
	e := newEngine(t)

	rank := func() []types.RankedMatch {
		h, err := e.Query("handler", "", 10)
		require.NoError(t, err)
		require.NoError(t, e.Feed(h, candidates(0, "api/handler.go", "web/handler.go")))
		require.NoError(t, e.Done(h))
		return awaitReady(t, e, h)
	}

	before := rank()
	require.Len(t, before, 2)

	// Repeatedly picking the second file must eventually rank it first.
	for i := 0; i < 5; i++ {
		require.NoError(t, e.RecordSelection("web/handler.go"))
	}
	after := rank()
	require.Len(t, after, 2)
	assert.Equal(t, 1, after[0].CandidateIndex)
	assert.Greater(t, after[0].Score.Frequency, after[1].Score.Frequency)
}

func TestProviderFailureSurfacesCause(t *testing.T) {
	e := newEngine(t)

	h, err := e.Query("q", "", 10)
	require.NoError(t, err)
	cause := errors.New("walker: permission denied")
	e.Fail(h, cause)

	_, err = e.Poll(h)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.False(t, errors.Is(err, types.ErrSuperseded))

	var perr *types.ProviderError
	assert.True(t, errors.As(err, &perr))
}

func TestAbortDiscardsQuery(t *testing.T) {
	e := newEngine(t)

	h, err := e.Query("q", "", 10)
	require.NoError(t, err)
	require.NoError(t, e.Feed(h, candidates(0, "a.go")))
	e.Abort(h)

	_, err = e.Poll(h)
	assert.ErrorIs(t, err, types.ErrSuperseded)
}

func TestQueryAfterCloseFails(t *testing.T) {
	e, err := New(Config{Workers: 1})
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, err = e.Query("q", "", 10)
	assert.ErrorIs(t, err, types.ErrPoolClosed)
}

func TestPartialVisibleWhileFeeding(t *testing.T) {
	e := newEngine(t)

	h, err := e.Query("go", "", 10)
	require.NoError(t, err)
	require.NoError(t, e.Feed(h, candidates(0, "a.go", "b.go")))

	// Partial catches up once the batch is scored; the feed is still open.
	require.Eventually(t, func() bool {
		return len(e.Partial(h)) == 2
	}, 2*time.Second, time.Millisecond)
	_, err = e.Poll(h)
	assert.ErrorIs(t, err, types.ErrNotReady)

	require.NoError(t, e.Done(h))
	awaitReady(t, e, h)
}
