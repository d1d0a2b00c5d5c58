// Package provider turns external candidate sources into batches of
// candidates: a filesystem walker for file queries and a parser for
// grep-style match lines piped in over the process boundary.
package provider

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dshills/shortlist-mcp/pkg/types"
)

// DefaultBatchSize is how many candidates a walker emits per batch. Small
// enough that scoring starts before the walk finishes on big trees.
const DefaultBatchSize = 256

// Walker enumerates files under a root directory as ranking candidates.
type Walker struct {
	// BatchSize caps candidates per emitted batch. <= 0 means
	// DefaultBatchSize.
	BatchSize int
	// IncludeHidden walks into dot-directories and emits dot-files.
	IncludeHidden bool
	// IncludeVendor walks into vendor and node_modules directories.
	IncludeVendor bool
}

// Walk enumerates files under root and hands them to emit in batches.
// Candidate indexes are assigned sequentially in walk order; Display and
// Path are root-relative with forward slashes. Walk stops early when ctx is
// cancelled or emit returns an error.
func (w *Walker) Walk(ctx context.Context, root string, emit func(batch []types.Candidate) error) error {
	batchSize := w.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("walking %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("walking %s: not a directory", root)
	}

	batch := make([]types.Candidate, 0, batchSize)
	next := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		out := batch
		batch = make([]types.Candidate, 0, batchSize)
		return emit(out)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if !w.IncludeHidden && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if !w.IncludeVendor && (name == "vendor" || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.IncludeHidden && strings.HasPrefix(name, ".") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		batch = append(batch, types.Candidate{
			Index:   next,
			Display: rel,
			Path:    rel,
		})
		next++

		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", root, err)
	}
	return flush()
}

// ParseGrepLine parses one grep-style match line into a candidate. Both
// "path:row:col:text" and "path:row:text" are accepted; a line with no
// location fields becomes a bare path candidate. Display keeps the whole
// line so match text stays visible and rankable.
func ParseGrepLine(index int, line string) types.Candidate {
	c := types.Candidate{Index: index, Display: line, Path: line}

	parts := strings.SplitN(line, ":", 4)
	if len(parts) < 2 {
		return c
	}
	row, err := strconv.Atoi(parts[1])
	if err != nil || row < 0 {
		return c
	}

	c.Path = parts[0]
	c.Row = row
	if len(parts) >= 4 {
		if col, err := strconv.Atoi(parts[2]); err == nil && col >= 0 {
			c.Col = col
		}
	}
	return c
}

// ParseGrepLines parses a block of grep output into candidates, skipping
// blank lines. Indexes are assigned sequentially from start.
func ParseGrepLines(start int, lines []string) []types.Candidate {
	out := make([]types.Candidate, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, ParseGrepLine(start+len(out), line))
	}
	return out
}
