// Package models contains domain models for agora.
package models

import "time"

// Item is a single ingested news article. Identity and text are immutable
// after ingestion; ViewCount only ever grows.
type Item struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Link        string    `db:"link" json:"link"`
	Category    string    `db:"category" json:"category"`
	Source      string    `db:"source" json:"source"`
	ViewCount   int64     `db:"view_count" json:"view_count"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
