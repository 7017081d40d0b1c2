package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit = 20
	perCategoryLimit = 10
	maxSearchResults = 50
)

// handleArticles returns the landing-page projection: newest articles,
// most viewed articles, and the newest few per category.
func (s *Service) handleArticles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	latest, err := s.articles.Latest(ctx, defaultListLimit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	popular, err := s.articles.Popular(ctx, defaultListLimit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	categorized, err := s.articles.Categorized(ctx, perCategoryLimit)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"latest":      latest,
		"popular":     popular,
		"categorized": categorized,
	})
}

func (s *Service) handleArticleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > maxSearchResults {
			n = maxSearchResults
		}
		limit = n
	}

	items, err := s.searcher.Search(r.Context(), query, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"articles": items})
}

// handleArticleView records one view. Views feed the popularity signal the
// clustering engine runs on.
func (s *Service) handleArticleView(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}

	if err := s.articles.IncrementViews(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
