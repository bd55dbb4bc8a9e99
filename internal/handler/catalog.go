package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
)

// ListStarships handles GET /api/starships?page=N. A missing page reloads the
// current one.
func (h *Handler) ListStarships(w http.ResponseWriter, r *http.Request) {
	page := h.shop.Snapshot().Catalog.CurrentPage
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}

	if err := h.shop.FetchPage(r.Context(), page); err != nil {
		h.fail(w, r, err)
		return
	}

	s := h.shop.Snapshot().Catalog
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		h.encodeItems(e, s.Items)
		e.FieldStart("currentPage")
		e.Int(s.CurrentPage)
		e.FieldStart("hasMore")
		e.Bool(s.HasMore)
		e.FieldStart("count")
		e.Int(s.Count)
		e.ObjEnd()
	})
}

// SearchStarships handles GET /api/starships/search?q=Q.
func (h *Handler) SearchStarships(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if err := h.shop.Search(r.Context(), q); err != nil {
		h.fail(w, r, err)
		return
	}

	s := h.shop.Snapshot().Catalog
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("query")
		e.Str(q)
		e.FieldStart("results")
		h.encodeItems(e, s.SearchResults)
		e.ObjEnd()
	})
}

// ClearSearch handles DELETE /api/starships/search.
func (h *Handler) ClearSearch(w http.ResponseWriter, _ *http.Request) {
	h.shop.ClearSearch()
	w.WriteHeader(http.StatusNoContent)
}
