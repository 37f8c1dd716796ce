// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Keyword search over SQLite as the idiomatic substitute for a
// Postgres ILIKE scan — same semantics (case-insensitive substring,
// occurrence-based score, ±50-char highlighted snippets), different
// SQL dialect (LIKE with COLLATE NOCASE instead of ILIKE).
package search

import (
	"context"
	"database/sql"
	"strings"
)

// KeywordEngine performs a LIKE-based scan over chunks joined with
// documents.
type KeywordEngine struct {
	DB *sql.DB
}

func NewKeywordEngine(db *sql.DB) *KeywordEngine {
	return &KeywordEngine{DB: db}
}

func (e *KeywordEngine) Search(ctx context.Context, q Query) ([]Item, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	whereExtra, extraArgs := buildWhereClause(q.Filters)

	query := `
		SELECT c.chunk_id, c.document_id, c.content, c.chunk_index, c.page_number,
		       d.filename, d.mime_type, d.created_at
		FROM chunks c
		LEFT JOIN documents d ON c.document_id = d.document_id
		WHERE c.content LIKE ? COLLATE NOCASE` + whereExtra + `
		ORDER BY c.chunk_index
		LIMIT ? OFFSET ?
	`
	args := append([]interface{}{"%" + q.Query + "%"}, extraArgs...)
	args = append(args, limit, q.Offset)

	rows, err := e.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			chunkID, docID, content, filename, mimeType, createdAt sql.NullString
			chunkIndex                                             int
			pageNumber                                             sql.NullInt64
		)
		if err := rows.Scan(&chunkID, &docID, &content, &chunkIndex, &pageNumber, &filename, &mimeType, &createdAt); err != nil {
			return nil, err
		}

		text := content.String
		occurrences := strings.Count(strings.ToLower(text), strings.ToLower(q.Query))
		score := float64(occurrences) * 0.2
		if score > 1.0 {
			score = 1.0
		}

		item := Item{
			DocID:      docID.String,
			ChunkID:    chunkID.String,
			Title:      filename.String,
			Excerpt:    truncate(text, 300),
			Score:      score,
			FileType:   mimeType.String,
			Highlights: extractHighlights(text, q.Query, 3, 50),
			Metadata:   map[string]string{},
		}
		if pageNumber.Valid {
			n := int(pageNumber.Int64)
			item.PageNumber = &n
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// extractHighlights finds up to maxHighlights occurrences of query in
// text, each with ±contextChars of surrounding context and ellipses
// where truncated.
func extractHighlights(text, query string, maxHighlights, contextChars int) []string {
	if query == "" {
		return nil
	}
	lowerText := strings.ToLower(text)
	lowerQuery := strings.ToLower(query)

	var highlights []string
	pos := 0
	for len(highlights) < maxHighlights {
		idx := strings.Index(lowerText[pos:], lowerQuery)
		if idx < 0 {
			break
		}
		idx += pos

		start := idx - contextChars
		if start < 0 {
			start = 0
		}
		end := idx + len(query) + contextChars
		if end > len(text) {
			end = len(text)
		}

		snippet := text[start:end]
		if start > 0 {
			snippet = "..." + snippet
		}
		if end < len(text) {
			snippet = snippet + "..."
		}
		highlights = append(highlights, snippet)
		pos = idx + len(query)
	}
	return highlights
}
