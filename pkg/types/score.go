package types

// ScoreTriple holds the three independent sub-scores computed for a
// (query, candidate, context) triple. All values are finite; a candidate
// whose query text does not match at all is excluded from results entirely
// rather than carrying a sentinel score.
type ScoreTriple struct {
	// Query is the fuzzy subsequence match score against the display string,
	// normalized by display length. Baseline 0 for empty queries.
	Query float64 `json:"query_score"`
	// Frequency is a monotonic function of the usage store weight for the
	// candidate's path. Zero for paths never selected.
	Frequency float64 `json:"frequency_score"`
	// Context is the similarity between the candidate's path and the query's
	// context path, decayed as the query text grows.
	Context float64 `json:"context_score"`
}

// RankedMatch is a scored candidate reference.
type RankedMatch struct {
	CandidateIndex int         `json:"candidate_index"`
	Score          ScoreTriple `json:"score"`
}

// Outranks reports whether m ranks strictly ahead of other. Ordering is by
// query score, then frequency, then context, with ascending candidate index
// as the final tie-break, so the relation is a strict total order and ranking
// is deterministic regardless of insertion order.
func (m RankedMatch) Outranks(other RankedMatch) bool {
	if m.Score.Query != other.Score.Query {
		return m.Score.Query > other.Score.Query
	}
	if m.Score.Frequency != other.Score.Frequency {
		return m.Score.Frequency > other.Score.Frequency
	}
	if m.Score.Context != other.Score.Context {
		return m.Score.Context > other.Score.Context
	}
	return m.CandidateIndex < other.CandidateIndex
}
