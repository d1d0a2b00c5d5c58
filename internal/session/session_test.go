package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/shortlist-mcp/pkg/types"
)

func match(index int, query float64) types.RankedMatch {
	return types.RankedMatch{CandidateIndex: index, Score: types.ScoreTriple{Query: query}}
}

func TestNew_StartsAccumulating(t *testing.T) {
	s := New(1, types.Query{Text: "q", Limit: 5})
	assert.Equal(t, types.StateAccumulating, s.State())
	assert.Equal(t, uint64(1), s.Generation())
	assert.Equal(t, 5, s.Query().Limit)
}

func TestNew_NormalizesLimit(t *testing.T) {
	s := New(1, types.Query{Text: "q"})
	assert.Equal(t, types.DefaultLimit, s.Query().Limit)
}

func TestLifecycle_FeedScoreDone(t *testing.T) {
	s := New(1, types.Query{Text: "q", Limit: 10})

	require.NoError(t, s.NoteBatch())
	require.NoError(t, s.NoteBatch())

	_, err := s.Poll()
	assert.ErrorIs(t, err, types.ErrNotReady)

	s.Deliver([]types.RankedMatch{match(0, 2)})
	require.NoError(t, s.Finish())
	assert.Equal(t, types.StateFinalizing, s.State())

	_, err = s.Poll()
	assert.ErrorIs(t, err, types.ErrNotReady, "outstanding batch keeps the session finalizing")

	s.Deliver([]types.RankedMatch{match(1, 3)})
	assert.Equal(t, types.StateReady, s.State())

	got, err := s.Poll()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].CandidateIndex)
}

func TestFinish_NoBatchesMeansReadyImmediately(t *testing.T) {
	s := New(1, types.Query{Text: "q", Limit: 10})
	require.NoError(t, s.Finish())

	got, err := s.Poll()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNoteBatch_AfterFinishFails(t *testing.T) {
	s := New(1, types.Query{Text: "q", Limit: 10})
	require.NoError(t, s.NoteBatch())
	require.NoError(t, s.Finish())

	assert.ErrorIs(t, s.NoteBatch(), types.ErrFeedClosed)
}

func TestFinish_TwiceFails(t *testing.T) {
	s := New(1, types.Query{Text: "q", Limit: 10})
	require.NoError(t, s.Finish())
	assert.ErrorIs(t, s.Finish(), types.ErrSessionDone)
}

func TestPoll_IdempotentAfterReady(t *testing.T) {
	s := New(1, types.Query{Text: "q", Limit: 10})
	require.NoError(t, s.NoteBatch())
	s.Deliver([]types.RankedMatch{match(0, 1), match(1, 2)})
	require.NoError(t, s.Finish())

	first, err := s.Poll()
	require.NoError(t, err)
	second, err := s.Poll()
	require.NoError(t, err)
	assert.Equal(t, first, second, "repeated polls return the same cached list")
}

func TestCancel_DiscardsLateDeliveries(t *testing.T) {
	s := New(1, types.Query{Text: "q", Limit: 10})
	require.NoError(t, s.NoteBatch())
	s.Cancel()

	// Late worker output for the dead generation lands after the fact.
	s.Deliver([]types.RankedMatch{match(0, 99)})

	_, err := s.Poll()
	assert.ErrorIs(t, err, types.ErrSuperseded)
	assert.ErrorIs(t, s.NoteBatch(), types.ErrSuperseded)
	assert.ErrorIs(t, s.Finish(), types.ErrSuperseded)
}

func TestFail_SurfacesCauseDistinctFromSuperseded(t *testing.T) {
	s := New(1, types.Query{Text: "q", Limit: 10})
	cause := errors.New("provider exploded")
	s.Fail(&types.ProviderError{Err: cause})

	_, err := s.Poll()
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.False(t, errors.Is(err, types.ErrSuperseded))
}

func TestFail_FirstErrorWins(t *testing.T) {
	s := New(1, types.Query{Text: "q", Limit: 10})
	first := errors.New("first")
	s.Fail(first)
	s.Fail(errors.New("second"))
	s.Cancel()

	_, err := s.Poll()
	assert.ErrorIs(t, err, first)
}

func TestPartial_VisibleBeforeDone(t *testing.T) {
	s := New(1, types.Query{Text: "q", Limit: 2})
	require.NoError(t, s.NoteBatch())
	require.NoError(t, s.NoteBatch())
	s.Deliver([]types.RankedMatch{match(0, 5), match(1, 1), match(2, 3)})

	partial := s.Partial()
	require.Len(t, partial, 2)
	assert.Equal(t, 0, partial[0].CandidateIndex)
	assert.Equal(t, 2, partial[1].CandidateIndex)

	// The final result still reflects everything delivered.
	s.Deliver([]types.RankedMatch{match(3, 9)})
	require.NoError(t, s.Finish())
	got, err := s.Poll()
	require.NoError(t, err)
	assert.Equal(t, 3, got[0].CandidateIndex)
}
