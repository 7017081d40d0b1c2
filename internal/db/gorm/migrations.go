package gorm

import (
	"fmt"
	"strings"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
// vectorDims fixes the width of the vec0 embedding cache table; changing it
// requires dropping article_vectors (embeddings are a cache, not state).
func runMigrations(db *gorm.DB, vectorDims int) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: Core tables
		{
			ID: "001_core_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&Article{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&Room{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&RoomItem{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&ChatMessage{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&User{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("articles", "rooms", "room_items", "messages", "users")
			},
		},

		// Migration 002: FTS5 virtual table for article title search.
		// FTS5 needs mattn/go-sqlite3 built with the sqlite_fts5 tag
		// (see sqlite_build.go). Without it the table is skipped and
		// title search degrades to the LIKE fallback.
		{
			ID: "002_articles_fts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.Exec(
					`CREATE VIRTUAL TABLE IF NOT EXISTS articles_fts USING fts5(
						title,
						content='articles',
						content_rowid='id'
					)`).Error; err != nil {
					if strings.Contains(err.Error(), "no such module: fts5") {
						log.Warn().Msg("sqlite built without FTS5, title search will use LIKE")
						return nil
					}
					return err
				}
				sqls := []string{
					`CREATE TRIGGER IF NOT EXISTS articles_ai AFTER INSERT ON articles BEGIN
						INSERT INTO articles_fts(rowid, title)
						VALUES (new.id, new.title);
					END`,
					`CREATE TRIGGER IF NOT EXISTS articles_ad AFTER DELETE ON articles BEGIN
						INSERT INTO articles_fts(articles_fts, rowid, title)
						VALUES('delete', old.id, old.title);
					END`,
					`CREATE TRIGGER IF NOT EXISTS articles_au AFTER UPDATE OF title ON articles BEGIN
						INSERT INTO articles_fts(articles_fts, rowid, title)
						VALUES('delete', old.id, old.title);
						INSERT INTO articles_fts(rowid, title)
						VALUES (new.id, new.title);
					END`,
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				sqls := []string{
					"DROP TRIGGER IF EXISTS articles_au",
					"DROP TRIGGER IF EXISTS articles_ad",
					"DROP TRIGGER IF EXISTS articles_ai",
					"DROP TABLE IF EXISTS articles_fts",
				}
				for _, s := range sqls {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
		},

		// Migration 003: sqlite-vec cache for article title embeddings
		{
			ID: "003_article_vectors",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(fmt.Sprintf(
					`CREATE VIRTUAL TABLE IF NOT EXISTS article_vectors USING vec0(
						embedding float[%d]
					)`, vectorDims)).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP TABLE IF EXISTS article_vectors").Error
			},
		},
	})

	return m.Migrate()
}
