// Package topk provides a bounded selector that keeps the K best ranked
// matches seen so far without storing the full candidate set.
package topk

import (
	"container/heap"

	"github.com/dshills/shortlist-mcp/pkg/types"
)

// Selector keeps the K best RankedMatch values by the total order defined by
// types.RankedMatch.Outranks. Insertion is O(log K). Once full, an insert
// only takes effect if the new match outranks the current worst kept match,
// which is evicted. Not safe for concurrent use; the owning session
// serializes access.
type Selector struct {
	k int
	h matchHeap
}

// New creates a selector of capacity k. Non-positive k falls back to the
// default limit.
func New(k int) *Selector {
	if k <= 0 {
		k = types.DefaultLimit
	}
	return &Selector{
		k: k,
		h: make(matchHeap, 0, k),
	}
}

// Cap returns the selector capacity K.
func (s *Selector) Cap() int {
	return s.k
}

// Len returns the number of matches currently kept.
func (s *Selector) Len() int {
	return s.h.Len()
}

// Insert offers one match to the selector.
func (s *Selector) Insert(m types.RankedMatch) {
	if s.h.Len() < s.k {
		heap.Push(&s.h, m)
		return
	}
	if m.Outranks(s.h[0]) {
		s.h[0] = m
		heap.Fix(&s.h, 0)
	}
}

// InsertAll offers a batch of matches to the selector.
func (s *Selector) InsertAll(ms []types.RankedMatch) {
	for _, m := range ms {
		s.Insert(m)
	}
}

// Results returns the kept matches best-first. The selector is left intact,
// so partial views and the final result use the same call.
func (s *Selector) Results() []types.RankedMatch {
	tmp := make(matchHeap, s.h.Len())
	copy(tmp, s.h)
	out := make([]types.RankedMatch, len(tmp))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&tmp).(types.RankedMatch)
	}
	return out
}

// matchHeap is a min-heap: the worst kept match sits at the root so eviction
// is O(log K).
type matchHeap []types.RankedMatch

func (h matchHeap) Len() int           { return len(h) }
func (h matchHeap) Less(i, j int) bool { return h[j].Outranks(h[i]) }
func (h matchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *matchHeap) Push(x any) {
	*h = append(*h, x.(types.RankedMatch))
}

func (h *matchHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
