// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Search handlers expose internal/search's Hybrid/Semantic/Keyword
// engines and internal/regexengine's pattern scan, each parsing the
// shared Query shape from query-string parameters.
package server

import (
	"net/http"
	"strconv"

	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/regexengine"
	"github.com/mantisfury/arkham-core/internal/search"
)

func parseSearchQuery(r *http.Request) search.Query {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	semanticWeight, err := strconv.ParseFloat(q.Get("semantic_weight"), 64)
	if err != nil {
		semanticWeight = 0.5
	}
	keywordWeight, err := strconv.ParseFloat(q.Get("keyword_weight"), 64)
	if err != nil {
		keywordWeight = 0.5
	}
	return search.Query{
		Query:          q.Get("q"),
		Limit:          limit,
		Offset:         offset,
		SemanticWeight: semanticWeight,
		KeywordWeight:  keywordWeight,
		SortBy:         search.SortBy(q.Get("sort_by")),
		SortOrder:      search.SortOrder(q.Get("sort_order")),
	}
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/search/" {
		writeAppError(w, apperr.NotFound("route %s", r.URL.Path))
		return
	}
	query := parseSearchQuery(r)
	if query.Query == "" {
		writeAppError(w, apperr.Validation("q is required"))
		return
	}
	items, err := h.frame.Hybrid.Search(r.Context(), query)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": items})
}

func (h *handlers) searchSemantic(w http.ResponseWriter, r *http.Request) {
	query := parseSearchQuery(r)
	if query.Query == "" {
		writeAppError(w, apperr.Validation("q is required"))
		return
	}
	items, err := h.frame.Semantic.Search(r.Context(), query)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": items})
}

func (h *handlers) searchKeyword(w http.ResponseWriter, r *http.Request) {
	query := parseSearchQuery(r)
	if query.Query == "" {
		writeAppError(w, apperr.Validation("q is required"))
		return
	}
	items, err := h.frame.Keyword.Search(r.Context(), query)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": items})
}

func (h *handlers) searchRegex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pattern := q.Get("pattern")
	if pattern == "" {
		writeAppError(w, apperr.Validation("pattern is required"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	offset, _ := strconv.Atoi(q.Get("offset"))

	result, err := h.frame.Regex.Search(r.Context(), regexengine.Query{
		Pattern:         pattern,
		CaseInsensitive: q.Get("case_insensitive") == "true",
		Multiline:       q.Get("multiline") == "true",
		DotAll:          q.Get("dot_all") == "true",
		ProjectID:       q.Get("project_id"),
		ContextChars:    100,
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
