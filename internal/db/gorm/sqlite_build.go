//go:build !sqlite_omit_load_extension
// +build !sqlite_omit_load_extension

package gorm

// This file flags the build requirements of mattn/go-sqlite3 for this
// package. Full-text title search needs the driver compiled with FTS5:
//
//	go build -tags sqlite_fts5 ./...
//	go test -tags sqlite_fts5 ./...
//
// Without the tag the store still opens: migration 002 skips the
// articles_fts table with a warning and SearchTitles serves the LIKE
// fallback instead.
