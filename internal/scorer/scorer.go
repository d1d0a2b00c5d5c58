package scorer

import (
	"math"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/sahilm/fuzzy"

	"github.com/dshills/shortlist-mcp/pkg/types"
)

// Relative weights of the two path-similarity components of the context
// score: shared leading directories dominate, string similarity breaks up
// plateaus between siblings.
const (
	sharedPrefixWeight = 0.7
	stringSimWeight    = 0.3

	// queryDecayRate controls how fast the context score fades as the query
	// grows. Context matters most before the user has typed anything; once
	// the input is explicit it should carry the ranking.
	queryDecayRate = 0.5
)

// UsageReader is the read-only view of the usage store the scorer needs.
// Implementations must tolerate concurrent readers.
type UsageReader interface {
	Score(path string) float64
}

// Scorer computes the three ranking signals for (query, candidate, context)
// triples. It holds no mutable state and is safe for concurrent use by
// multiple workers on disjoint batches.
type Scorer struct {
	usage UsageReader
}

// New creates a scorer reading frequency weights from usage. A nil usage
// reader scores every path's frequency as zero.
func New(usage UsageReader) *Scorer {
	return &Scorer{usage: usage}
}

// ScoreBatch scores a batch of candidates against a query. Candidates whose
// display string does not contain every query character in order are omitted
// from the result; an empty query text matches every candidate at the
// baseline query score of zero.
func (s *Scorer) ScoreBatch(q types.Query, batch []types.Candidate) []types.RankedMatch {
	if len(batch) == 0 {
		return nil
	}

	if q.Text == "" {
		out := make([]types.RankedMatch, 0, len(batch))
		for _, c := range batch {
			out = append(out, types.RankedMatch{
				CandidateIndex: c.Index,
				Score: types.ScoreTriple{
					Query:     0,
					Frequency: s.frequencyScore(c.Path),
					Context:   s.contextScore(q.Text, c.Path, q.ContextPath),
				},
			})
		}
		return out
	}

	matches := fuzzy.FindFrom(q.Text, candidateSource(batch))
	out := make([]types.RankedMatch, 0, len(matches))
	for _, m := range matches {
		c := batch[m.Index]
		out = append(out, types.RankedMatch{
			CandidateIndex: c.Index,
			Score: types.ScoreTriple{
				Query:     normalizeQueryScore(m.Score, c.Display),
				Frequency: s.frequencyScore(c.Path),
				Context:   s.contextScore(q.Text, c.Path, q.ContextPath),
			},
		})
	}
	return out
}

// Score scores a single candidate. The boolean is false when the query text
// does not match the candidate at all; such candidates are excluded from
// results, never ranked last.
func (s *Scorer) Score(q types.Query, c types.Candidate) (types.ScoreTriple, bool) {
	got := s.ScoreBatch(q, []types.Candidate{c})
	if len(got) == 0 {
		return types.ScoreTriple{}, false
	}
	return got[0].Score, true
}

// candidateSource adapts a candidate batch to the fuzzy matcher's input.
type candidateSource []types.Candidate

func (c candidateSource) String(i int) string { return c[i].Display }
func (c candidateSource) Len() int            { return len(c) }

// normalizeQueryScore divides the raw fuzzy score by the display length so
// that, at equal raw score, shorter candidates rank higher.
func normalizeQueryScore(raw int, display string) float64 {
	if len(display) == 0 {
		return 0
	}
	return float64(raw) / float64(len(display))
}

func (s *Scorer) frequencyScore(path string) float64 {
	if s.usage == nil || path == "" {
		return 0
	}
	return s.usage.Score(path)
}

// contextScore measures how close the candidate sits to the file the user
// was in when the query began. The whole term decays exponentially with the
// query length.
func (s *Scorer) contextScore(queryText, path, contextPath string) float64 {
	if path == "" || contextPath == "" {
		return 0
	}
	sim := pathSimilarity(path, contextPath)
	if sim == 0 {
		return 0
	}
	return math.Exp(-queryDecayRate*float64(len(queryText))) * sim
}

// pathSimilarity blends the shared leading directory depth of two paths with
// their Jaro-Winkler string similarity. Result is in [0, 1].
func pathSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}

	ac := splitPath(a)
	bc := splitPath(b)
	shared := 0
	for shared < len(ac) && shared < len(bc) && ac[shared] == bc[shared] {
		shared++
	}
	depth := len(ac)
	if len(bc) > depth {
		depth = len(bc)
	}
	prefix := 0.0
	if depth > 0 {
		prefix = float64(shared) / float64(depth)
	}

	sim, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		sim = 0
	}

	return sharedPrefixWeight*prefix + stringSimWeight*float64(sim)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
