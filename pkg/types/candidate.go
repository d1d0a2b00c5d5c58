package types

const (
	// DefaultLimit is the number of matches returned when a query does not
	// specify a limit.
	DefaultLimit = 10
	// MaxLimit caps the number of matches a single query may request.
	MaxLimit = 1000
)

// Candidate is one rankable item presented to the engine. Candidates are
// immutable once created and owned by the caller; the engine refers to them
// by Index so candidate payloads are never copied through the pipeline.
type Candidate struct {
	// Index is the candidate's position in the caller's original ordering.
	Index int `json:"index"`
	// Display is the text the query is matched against and shown to the user.
	Display string `json:"display"`
	// Path is used for frequency and context scoring.
	Path string `json:"path"`
	// Row and Col are optional source coordinates (grep hits, symbols).
	Row int `json:"row,omitempty"`
	Col int `json:"col,omitempty"`
}

// Query describes one ranking request. A query is associated with exactly one
// session; sessions are not reused across queries.
type Query struct {
	// Text is the incremental user input. Empty text matches every candidate
	// at the baseline query score.
	Text string `json:"text"`
	// ContextPath is the file the user was viewing when the query began.
	ContextPath string `json:"context_path"`
	// Limit is the shortlist size K.
	Limit int `json:"limit"`
}

// Normalized returns a copy of q with Limit clamped to [1, MaxLimit],
// defaulting to DefaultLimit when unset.
func (q Query) Normalized() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}
