package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// startQueryTool returns the tool definition for start_query
func startQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "start_query",
		Description: "Start a new fuzzy query, superseding any query already in flight",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Fuzzy query text; empty matches every candidate",
				},
				"context_path": map[string]interface{}{
					"type":        "string",
					"description": "Path the query was launched from, used for proximity scoring",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of ranked results to keep (1-1000)",
					"default":     10,
					"minimum":     1,
					"maximum":     1000,
				},
			},
		},
	}
}

// feedCandidatesTool returns the tool definition for feed_candidates
func feedCandidatesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "feed_candidates",
		Description: "Feed one batch of candidate lines into the live query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"generation": map[string]interface{}{
					"type":        "integer",
					"description": "Generation id returned by start_query; stale generations are rejected",
				},
				"lines": map[string]interface{}{
					"type":        "array",
					"description": "Candidate lines: bare paths or grep-style path:row[:col]:text",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"generation", "lines"},
		},
	}
}

// finishFeedTool returns the tool definition for finish_feed
func finishFeedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "finish_feed",
		Description: "Close the live query's feed; results become ready once scoring drains",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"generation": map[string]interface{}{
					"type":        "integer",
					"description": "Generation id returned by start_query",
				},
			},
			Required: []string{"generation"},
		},
	}
}

// abortQueryTool returns the tool definition for abort_query
func abortQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "abort_query",
		Description: "Cancel the live query without starting a replacement",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"generation": map[string]interface{}{
					"type":        "integer",
					"description": "Generation id returned by start_query",
				},
			},
			Required: []string{"generation"},
		},
	}
}

// pollResultsTool returns the tool definition for poll_results
func pollResultsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "poll_results",
		Description: "Poll the live query without blocking; returns status and ranked matches",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"generation": map[string]interface{}{
					"type":        "integer",
					"description": "Generation id returned by start_query",
				},
				"partial": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include the current partial ranking while scoring is still running",
					"default":     false,
				},
			},
			Required: []string{"generation"},
		},
	}
}

// recordSelectionTool returns the tool definition for record_selection
func recordSelectionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "record_selection",
		Description: "Record that the user picked a path, boosting it in future rankings",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path of the selected candidate",
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchFilesTool returns the tool definition for search_files
func searchFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_files",
		Description: "Walk a directory tree and rank its files against a fuzzy query in one call",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"root": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the directory to walk",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Fuzzy query text; empty matches every file",
				},
				"context_path": map[string]interface{}{
					"type":        "string",
					"description": "Path the query was launched from, used for proximity scoring",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of ranked results (1-1000)",
					"default":     10,
					"minimum":     1,
					"maximum":     1000,
				},
				"include_hidden": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include dot-files and dot-directories",
					"default":     false,
				},
				"include_vendor": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include vendor/ and node_modules/ directories",
					"default":     false,
				},
			},
			Required: []string{"root"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report the live query's state and usage-store statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
