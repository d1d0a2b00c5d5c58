// Package scorer computes the three independent ranking signals for a
// (query, candidate, context) triple.
//
// The query score is a Sublime-style fuzzy subsequence match: every query
// character must appear in order in the candidate's display string, with
// bonuses for contiguous runs and word/path-boundary starts, normalized by
// display length. Candidates that do not admit the subsequence are excluded
// from results entirely.
//
// The frequency score reads the usage store (log1p of the selection weight);
// the context score measures path proximity to the file the user launched
// the query from and fades as the query text grows.
//
// Scoring is pure: no I/O, no shared mutable state, safe to call from any
// number of workers on disjoint batches.
package scorer
