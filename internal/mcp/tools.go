package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/shortlist-mcp/internal/engine"
	"github.com/dshills/shortlist-mcp/internal/provider"
	"github.com/dshills/shortlist-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNoSession     = -32001 // No query has been started
	ErrorCodeFeedClosed    = -32002 // The live query's feed is already closed
)

// pollInterval paces the bounded wait loop inside search_files.
const pollInterval = 2 * time.Millisecond

// handleStartQuery handles the start_query tool invocation
func (s *Server) handleStartQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query := getStringDefault(args, "query", "")
	contextPath := getStringDefault(args, "context_path", "")
	limit := getIntDefault(args, "limit", types.DefaultLimit)
	if limit < 1 || limit > types.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 1000", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	h, err := s.engine.Query(query, contextPath, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to start query", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.beginQuery(h)

	response := map[string]interface{}{
		"generation": h.Generation(),
		"state":      s.engine.State(h).String(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFeedCandidates handles the feed_candidates tool invocation
func (s *Server) handleFeedCandidates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	h, gen, result, err := s.checkGeneration(args)
	if result != nil || err != nil {
		return result, err
	}

	rawLines, ok := args["lines"].([]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "lines parameter is required", map[string]interface{}{
			"param":  "lines",
			"reason": "missing or not an array",
		})
	}
	lines := make([]string, 0, len(rawLines))
	for _, raw := range rawLines {
		line, ok := raw.(string)
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "lines must contain only strings", nil)
		}
		lines = append(lines, line)
	}

	batch := provider.ParseGrepLines(0, lines)
	base := s.nextIndexes(len(batch))
	for i := range batch {
		batch[i].Index += base
	}

	if err := s.engine.Feed(h, batch); err != nil {
		switch {
		case errors.Is(err, types.ErrSuperseded):
			return mcp.NewToolResultText(formatJSON(s.superseded(gen))), nil
		case errors.Is(err, types.ErrFeedClosed):
			return nil, newMCPError(ErrorCodeFeedClosed, "feed is already closed", nil)
		default:
			return nil, newMCPError(ErrorCodeInternalError, "failed to feed candidates", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	response := map[string]interface{}{
		"generation": gen,
		"accepted":   len(batch),
		"state":      s.engine.State(h).String(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFinishFeed handles the finish_feed tool invocation
func (s *Server) handleFinishFeed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	h, gen, result, err := s.checkGeneration(args)
	if result != nil || err != nil {
		return result, err
	}

	if err := s.engine.Done(h); err != nil {
		switch {
		case errors.Is(err, types.ErrSuperseded):
			return mcp.NewToolResultText(formatJSON(s.superseded(gen))), nil
		case errors.Is(err, types.ErrSessionDone):
			return nil, newMCPError(ErrorCodeFeedClosed, "feed is already closed", nil)
		default:
			return nil, newMCPError(ErrorCodeInternalError, "failed to finish feed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	response := map[string]interface{}{
		"generation": gen,
		"state":      s.engine.State(h).String(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleAbortQuery handles the abort_query tool invocation
func (s *Server) handleAbortQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	h, gen, result, err := s.checkGeneration(args)
	if result != nil || err != nil {
		return result, err
	}

	s.engine.Abort(h)
	response := map[string]interface{}{
		"generation": gen,
		"state":      s.engine.State(h).String(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handlePollResults handles the poll_results tool invocation
func (s *Server) handlePollResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	h, gen, result, err := s.checkGeneration(args)
	if result != nil || err != nil {
		return result, err
	}

	matches, pollErr := s.engine.Poll(h)
	switch {
	case pollErr == nil:
		response := map[string]interface{}{
			"generation": gen,
			"status":     "ready",
			"matches":    s.formatMatches(h, matches),
		}
		return mcp.NewToolResultText(formatJSON(response)), nil

	case errors.Is(pollErr, types.ErrNotReady):
		response := map[string]interface{}{
			"generation": gen,
			"status":     "pending",
		}
		if getBoolDefault(args, "partial", false) {
			response["status"] = "partial"
			response["matches"] = s.formatMatches(h, s.engine.Partial(h))
		}
		return mcp.NewToolResultText(formatJSON(response)), nil

	case errors.Is(pollErr, types.ErrSuperseded):
		return mcp.NewToolResultText(formatJSON(s.superseded(gen))), nil

	default:
		response := map[string]interface{}{
			"generation": gen,
			"status":     "failed",
			"error":      pollErr.Error(),
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
}

// handleRecordSelection handles the record_selection tool invocation
func (s *Server) handleRecordSelection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := s.engine.RecordSelection(path); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to record selection", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"recorded": true,
		"path":     path,
		"weight":   s.engine.Usage().Weight(path),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchFiles handles the search_files tool invocation. It composes
// the whole pipeline in one call: start a query, walk the tree into the
// feed, close it, and wait for the ranking.
func (s *Server) handleSearchFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	root, ok := args["root"].(string)
	if !ok || root == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "root parameter is required", map[string]interface{}{
			"param":  "root",
			"reason": "missing or empty",
		})
	}
	if err := validateRoot(root); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid root", map[string]interface{}{
			"param":  "root",
			"reason": err.Error(),
		})
	}

	query := getStringDefault(args, "query", "")
	contextPath := getStringDefault(args, "context_path", "")
	limit := getIntDefault(args, "limit", types.DefaultLimit)
	if limit < 1 || limit > types.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 1000", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	h, err := s.engine.Query(query, contextPath, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to start query", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.beginQuery(h)

	walker := &provider.Walker{
		IncludeHidden: getBoolDefault(args, "include_hidden", false),
		IncludeVendor: getBoolDefault(args, "include_vendor", false),
	}
	walkErr := walker.Walk(ctx, root, func(batch []types.Candidate) error {
		s.nextIndexes(len(batch))
		return s.engine.Feed(h, batch)
	})
	if walkErr != nil {
		s.engine.Fail(h, walkErr)
		if errors.Is(walkErr, types.ErrSuperseded) {
			return mcp.NewToolResultText(formatJSON(s.superseded(h.Generation()))), nil
		}
		return nil, newMCPError(ErrorCodeInternalError, "walk failed", map[string]interface{}{
			"error": walkErr.Error(),
		})
	}
	if err := s.engine.Done(h); err != nil {
		if errors.Is(err, types.ErrSuperseded) {
			return mcp.NewToolResultText(formatJSON(s.superseded(h.Generation()))), nil
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to finish feed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	matches, err := s.awaitResult(ctx, h)
	switch {
	case err == nil:
		response := map[string]interface{}{
			"generation": h.Generation(),
			"status":     "ready",
			"matches":    s.formatMatches(h, matches),
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	case errors.Is(err, types.ErrSuperseded):
		return mcp.NewToolResultText(formatJSON(s.superseded(h.Generation()))), nil
	default:
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// awaitResult polls the handle until it settles or ctx expires. The engine
// itself never blocks; this loop exists only for the one-shot tool surface.
func (s *Server) awaitResult(ctx context.Context, h *engine.Handle) ([]types.RankedMatch, error) {
	for {
		matches, err := s.engine.Poll(h)
		if !errors.Is(err, types.ErrNotReady) {
			return matches, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	usage := s.engine.Usage()
	response := map[string]interface{}{
		"server": map[string]interface{}{
			"name":    ServerName,
			"version": ServerVersion,
		},
		"usage": map[string]interface{}{
			"paths": usage.Len(),
			"clock": usage.Clock(),
		},
	}

	if h := s.live(); h != nil {
		response["query"] = map[string]interface{}{
			"generation": h.Generation(),
			"state":      s.engine.State(h).String(),
		}
	} else {
		response["query"] = nil
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// checkGeneration extracts the generation argument and matches it against
// the live query. A stale generation produces a superseded response rather
// than an error: racing a newer query is expected traffic, not misuse.
func (s *Server) checkGeneration(args map[string]interface{}) (*engine.Handle, uint64, *mcp.CallToolResult, error) {
	raw, ok := args["generation"].(float64)
	if !ok {
		if n, isInt := args["generation"].(int); isInt {
			raw, ok = float64(n), true
		}
	}
	if !ok || raw < 0 {
		return nil, 0, nil, newMCPError(ErrorCodeInvalidParams, "generation parameter is required", map[string]interface{}{
			"param":  "generation",
			"reason": "missing or not a non-negative integer",
		})
	}
	gen := uint64(raw)

	h := s.live()
	if h == nil {
		return nil, 0, nil, newMCPError(ErrorCodeNoSession, "no query started", nil)
	}
	if h.Generation() != gen {
		result := mcp.NewToolResultText(formatJSON(s.superseded(gen)))
		return nil, 0, result, nil
	}
	return h, gen, nil, nil
}

// superseded builds the response for traffic addressed to a dead
// generation. It includes the retained result of the last finished query so
// a late poller still has something useful to show.
func (s *Server) superseded(requested uint64) map[string]interface{} {
	response := map[string]interface{}{
		"generation":      requested,
		"live_generation": s.engine.Generation(),
		"status":          "superseded",
	}
	s.mu.Lock()
	if s.lastReady != nil {
		response["last_ready"] = s.lastReady
	}
	s.mu.Unlock()
	return response
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateRoot checks that a walk root is an absolute, readable directory.
func validateRoot(root string) error {
	if !filepath.IsAbs(root) {
		return ErrRootNotAbsolute
	}
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return ErrRootNotFound
	}
	if err != nil {
		return ErrRootNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	f, err := os.Open(root)
	if err != nil {
		return ErrRootNotReadable
	}
	_ = f.Close()
	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrRootNotAbsolute = errors.New("root must be absolute")
	ErrRootNotFound    = errors.New("root does not exist")
	ErrRootNotReadable = errors.New("root is not readable")
	ErrNotDirectory    = errors.New("root is not a directory")
)
