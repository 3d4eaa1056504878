// Package sqliteexternal provides the optional CGO SQLite driver.
//
// Quill's index database is opened through core/sqlite, which uses the pure
// Go modernc.org/sqlite driver by default. Building with the cgo_sqlite tag
// swaps in github.com/mattn/go-sqlite3 instead:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/quill
//
// The pure Go driver is the right choice for cross-compiled single binaries.
// The CGO driver is faster on large manuscripts with many indexed beats.
package sqliteexternal
