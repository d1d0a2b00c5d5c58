package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/shortlist-mcp/internal/engine"
	"github.com/dshills/shortlist-mcp/internal/frecency"
	"github.com/dshills/shortlist-mcp/internal/storage"
	"github.com/dshills/shortlist-mcp/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "shortlist-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the usage database
	DefaultDBPath = "~/.shortlist"
)

// Server wraps the MCP server with the ranking engine and its storage. One
// server hosts at most one live query; starting a new one supersedes it.
type Server struct {
	mcp    *server.MCPServer
	engine *engine.Engine
	store  *storage.SQLiteStore

	mu        sync.Mutex
	handle    *engine.Handle
	fed       int                // candidate indexes handed out for the live query
	lastReady []map[string]interface{} // retained result of the last query that finished
}

// NewServer creates a new MCP server instance. dbPath is the directory
// holding the usage database; empty means DefaultDBPath under the user's
// home. workers sizes the scoring pool, <= 0 means one per CPU.
func NewServer(dbPath string, workers int) (*Server, error) {
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".shortlist")
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dbFile := filepath.Join(dbPath, "frecency.db")

	store, err := storage.NewSQLiteStore(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	usage, err := frecency.New(frecency.Config{Storage: store})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load usage store: %w", err)
	}

	eng, err := engine.New(engine.Config{Workers: workers, Usage: usage})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:    mcpServer,
		engine: eng,
		store:  store,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		_ = s.engine.Close()
		_ = s.store.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// Close releases the engine and storage without serving. Used by tests and
// by main on startup failure paths.
func (s *Server) Close() error {
	if err := s.engine.Close(); err != nil {
		_ = s.store.Close()
		return err
	}
	return s.store.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(startQueryTool(), s.handleStartQuery)
	s.mcp.AddTool(feedCandidatesTool(), s.handleFeedCandidates)
	s.mcp.AddTool(finishFeedTool(), s.handleFinishFeed)
	s.mcp.AddTool(abortQueryTool(), s.handleAbortQuery)
	s.mcp.AddTool(pollResultsTool(), s.handlePollResults)
	s.mcp.AddTool(recordSelectionTool(), s.handleRecordSelection)
	s.mcp.AddTool(searchFilesTool(), s.handleSearchFiles)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// live returns the current handle, or nil when no query has been started.
func (s *Server) live() *engine.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// beginQuery swaps in a new handle, resetting the per-query feed counter.
func (s *Server) beginQuery(h *engine.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		// Keep the previous finished result visible to late pollers.
		if matches, err := s.engine.Poll(s.handle); err == nil {
			s.lastReady = s.formatMatches(s.handle, matches)
		}
	}
	s.handle = h
	s.fed = 0
}

// nextIndexes reserves n candidate indexes for the live query's feed.
func (s *Server) nextIndexes(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.fed
	s.fed += n
	return start
}

// formatMatches resolves ranked matches back to their candidates for the
// wire response.
func (s *Server) formatMatches(h *engine.Handle, matches []types.RankedMatch) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(matches))
	for _, m := range matches {
		entry := map[string]interface{}{
			"candidate_index": m.CandidateIndex,
			"query_score":     m.Score.Query,
			"frequency_score": m.Score.Frequency,
			"context_score":   m.Score.Context,
		}
		if c, ok := h.Lookup(m.CandidateIndex); ok {
			entry["display"] = c.Display
			entry["path"] = c.Path
			if c.Row > 0 {
				entry["row"] = c.Row
			}
			if c.Col > 0 {
				entry["col"] = c.Col
			}
		}
		out = append(out, entry)
	}
	return out
}
