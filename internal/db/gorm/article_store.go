package gorm

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/agora-live/agora/pkg/models"
)

// ArticleStore provides article-related database operations using GORM.
type ArticleStore struct {
	db    *gorm.DB
	rawDB *sql.DB
}

// NewArticleStore creates a new article store.
func NewArticleStore(store *Store) *ArticleStore {
	return &ArticleStore{
		db:    store.DB,
		rawDB: store.GetRawDB(),
	}
}

// RecentPopularItems returns items with a positive view count published
// within the trailing window, most viewed first. This is the clustering
// engine's candidate batch.
func (s *ArticleStore) RecentPopularItems(ctx context.Context, window time.Duration) ([]models.Item, error) {
	cutoff := time.Now().Add(-window)

	var articles []Article
	err := s.db.WithContext(ctx).
		Where("view_count > 0 AND published_at >= ?", cutoff).
		Order("view_count DESC, id ASC").
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return toModelItems(articles), nil
}

// Insert stores a new article. A duplicate link yields models.ErrConflict.
func (s *ArticleStore) Insert(ctx context.Context, item *models.Item) (int64, error) {
	a := Article{
		Title:       item.Title,
		Link:        item.Link,
		Category:    item.Category,
		Source:      item.Source,
		ViewCount:   item.ViewCount,
		PublishedAt: item.PublishedAt,
		CreatedAt:   time.Now(),
	}
	err := s.db.WithContext(ctx).Create(&a).Error
	if err != nil {
		if isUniqueViolation(err) {
			return 0, models.ErrConflict
		}
		return 0, err
	}
	item.ID = a.ID
	return a.ID, nil
}

// ExistsByLink reports whether an article with the given link is already stored.
func (s *ArticleStore) ExistsByLink(ctx context.Context, link string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Article{}).
		Where("link = ?", link).
		Count(&count).Error
	return count > 0, err
}

// Latest returns the most recently ingested articles.
func (s *ArticleStore) Latest(ctx context.Context, limit int) ([]models.Item, error) {
	var articles []Article
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return toModelItems(articles), nil
}

// Popular returns articles ordered by view count, then recency.
func (s *ArticleStore) Popular(ctx context.Context, limit int) ([]models.Item, error) {
	var articles []Article
	err := s.db.WithContext(ctx).
		Order("view_count DESC, created_at DESC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return toModelItems(articles), nil
}

// Categorized returns the newest articles per category, keyed by category
// name, at most perCategory each.
func (s *ArticleStore) Categorized(ctx context.Context, perCategory int) (map[string][]models.Item, error) {
	var categories []string
	err := s.db.WithContext(ctx).
		Model(&Article{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string][]models.Item, len(categories))
	for _, category := range categories {
		var articles []Article
		err := s.db.WithContext(ctx).
			Where("category = ?", category).
			Order("created_at DESC, id DESC").
			Limit(perCategory).
			Find(&articles).Error
		if err != nil {
			return nil, err
		}
		out[category] = toModelItems(articles)
	}
	return out, nil
}

// GetByIDs returns articles for the given ids, lowest id first.
func (s *ArticleStore) GetByIDs(ctx context.Context, ids []int64) ([]models.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var articles []Article
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return toModelItems(articles), nil
}

// IncrementViews bumps an article's view count by one. The count is
// monotonic: nothing ever lowers it.
func (s *ArticleStore) IncrementViews(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).
		Model(&Article{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SearchTitles performs full-text search on article titles using FTS5.
// Falls back to LIKE search if FTS5 fails.
func (s *ArticleStore) SearchTitles(ctx context.Context, query string, limit int) ([]models.Item, error) {
	if limit <= 0 {
		limit = 20
	}

	terms := strings.Fields(strings.TrimSpace(query))
	if len(terms) == 0 {
		return nil, nil
	}
	ftsQuery := strings.Join(terms, " OR ")

	// FTS5 MATCH via raw SQL (GORM can't express the MATCH operator)
	rows, err := s.rawDB.QueryContext(ctx, `
		SELECT a.id, a.title, a.link, a.category, a.source, a.view_count, a.published_at, a.created_at
		FROM articles a
		JOIN articles_fts fts ON a.id = fts.rowid
		WHERE articles_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		return s.searchTitlesLike(ctx, terms, limit)
	}
	defer rows.Close()

	items, err := scanItemRows(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return s.searchTitlesLike(ctx, terms, limit)
	}
	return items, nil
}

// searchTitlesLike performs fallback LIKE search using GORM.
func (s *ArticleStore) searchTitlesLike(ctx context.Context, terms []string, limit int) ([]models.Item, error) {
	var conditions []string
	var args []interface{}
	for _, term := range terms {
		conditions = append(conditions, "title LIKE ?")
		args = append(args, "%"+term+"%")
	}

	var articles []Article
	err := s.db.WithContext(ctx).
		Where(strings.Join(conditions, " OR "), args...).
		Order("view_count DESC, created_at DESC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, err
	}
	return toModelItems(articles), nil
}

// scanItemRows scans raw SQL rows into items.
func scanItemRows(rows *sql.Rows) ([]models.Item, error) {
	var items []models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Title, &item.Link, &item.Category,
			&item.Source, &item.ViewCount, &item.PublishedAt, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
