// Package mcp exposes the ranking engine over the Model Context Protocol.
//
// The server speaks MCP over stdio and hosts at most one live query at a
// time. A client drives the incremental surface with four tools:
//
//	start_query      begin a new query; returns a generation id and
//	                 supersedes whatever query was in flight
//	feed_candidates  push one batch of candidate lines for the given
//	                 generation (bare paths or grep-style path:row[:col]:text)
//	finish_feed      close the feed; the ranking becomes ready once the
//	                 scoring pool drains
//	poll_results     non-blocking status check: pending, partial (opt-in),
//	                 ready with the ranked matches, superseded, or failed
//
// Every stateful tool carries the generation id from start_query. Traffic
// addressed to a dead generation gets a "superseded" response that includes
// the live generation and the retained result of the last query that
// finished, so a racing client can recover without an extra round trip.
// Supersession is expected traffic, not an error: only malformed arguments
// and misuse (no session, feed already closed) produce MCP errors.
//
// Two convenience tools round out the surface: search_files composes the
// whole pipeline in one call (walk a directory, feed, finish, wait bounded
// by the request context), and record_selection feeds a confirmed pick back
// into the usage store so it ranks higher next time. get_status reports the
// live query and usage-store statistics.
package mcp
