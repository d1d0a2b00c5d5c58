// Package storage provides SQLite-based persistence for selection weights.
//
// The engine's usage store lives in memory; this package only loads it at
// startup and records writes through, so a restart keeps the user's
// selection history.
//
// # Database Schema
//
// Tables:
//   - schema_version: applied migration versions
//   - clock: one monotone selection counter (id = 0)
//   - selections: path -> weight
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore("~/.shortlist/frecency.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	weights, clock, err := store.LoadWeights(ctx)
//
// # Build Tags
//
// The package supports two build configurations:
//
// CGO build (sqlite_cgo tag) uses github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
//
// Pure Go build (default) uses modernc.org/sqlite:
//
//	CGO_ENABLED=0 go build ./...
package storage
