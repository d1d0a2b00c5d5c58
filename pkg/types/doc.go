// Package types provides shared type definitions for the Shortlist ranking engine.
//
// This package defines the domain types that cross component boundaries:
// candidates, queries, score triples, ranked matches, session states, and the
// sentinel errors surfaced at the engine's public API.
//
// # Core Types
//
// Candidate is one rankable item (a file path, grep hit, or symbol). It is
// owned by the caller and referenced inside the engine only by its Index:
//
//	c := types.Candidate{
//	    Index:   0,
//	    Display: "src/main.rs",
//	    Path:    "src/main.rs",
//	}
//
// ScoreTriple carries the three independent ranking signals. They are shown
// separately to the caller and are never collapsed into a single number:
//
//	triple := types.ScoreTriple{
//	    Query:     0.42, // fuzzy subsequence match
//	    Frequency: 0.69, // past-selection bias
//	    Context:   0.11, // proximity to the context path
//	}
//
// RankedMatch pairs a candidate index with its scores. Outranks defines the
// total order used everywhere: query score first, then frequency, then
// context, with the candidate index as the final deterministic tie-break.
//
// # Polling Errors
//
// Poll results distinguish outcomes with sentinel errors:
//
//	matches, err := eng.Poll(h)
//	switch {
//	case errors.Is(err, types.ErrNotReady):   // keep polling
//	case errors.Is(err, types.ErrSuperseded): // a newer query took over
//	case err != nil:                          // internal or provider failure
//	}
package types
