// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package regexengine implements a Regex Engine: preset catalog,
// pattern validation, and database-side pattern scanning. Ported from
// engines/regex.py, adapted
// from Postgres's native ~/~* operators to SQLite by registering a
// custom REGEXP function via mattn/go-sqlite3, since SQLite has no
// built-in regex operator.
package regexengine

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

// Preset is a named, reusable regex pattern.
type Preset struct {
	ID          string
	Name        string
	Pattern     string
	Description string
	Category    string
	IsSystem    bool
}

// Presets are the built-in catalog, ported verbatim from
// original_source's REGEX_PRESETS.
var Presets = []Preset{
	{ID: "email", Name: "Email Addresses", Pattern: `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, Description: "Match email addresses", Category: "contact", IsSystem: true},
	{ID: "phone_us", Name: "US Phone Numbers", Pattern: `\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`, Description: "Match US phone number formats", Category: "contact", IsSystem: true},
	{ID: "ssn", Name: "Social Security Numbers", Pattern: `\d{3}-\d{2}-\d{4}`, Description: "Match SSN format (XXX-XX-XXXX)", Category: "pii", IsSystem: true},
	{ID: "credit_card", Name: "Credit Card Numbers", Pattern: `\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}`, Description: "Match credit card number format", Category: "financial", IsSystem: true},
	{ID: "ip_address", Name: "IP Addresses", Pattern: `\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`, Description: "Match IPv4 addresses", Category: "technical", IsSystem: true},
	{ID: "date_mdy", Name: "Dates (MM/DD/YYYY)", Pattern: `\d{1,2}/\d{1,2}/\d{2,4}`, Description: "Match dates in MM/DD/YYYY format", Category: "temporal", IsSystem: true},
	{ID: "url", Name: "URLs", Pattern: `https?://[^\s]+`, Description: "Match HTTP/HTTPS URLs", Category: "technical", IsSystem: true},
	{ID: "money_usd", Name: "USD Amounts", Pattern: `\$[\d,]+\.?\d*`, Description: "Match US dollar amounts", Category: "financial", IsSystem: true},
}

// dangerousPatterns are substrings indicating catastrophic-backtracking
// risk in the originating engine. Go's regexp is RE2-based and immune
// to this class of blowup, but the heuristic is kept for API parity —
// callers building patterns meant to run elsewhere still want the warning.
var dangerousPatterns = []string{
	`(.+)+`,
	`(.*)*`,
	`(a|a)+`,
	`([^"]*)*`,
}

// Estimate names a pattern's expected match cost.
type Estimate string

const (
	EstimateInvalid   Estimate = "invalid"
	EstimateDangerous Estimate = "dangerous"
	EstimateFast      Estimate = "fast"
	EstimateModerate  Estimate = "moderate"
	EstimateSlow      Estimate = "slow"
)

// ValidatePattern checks pattern syntax and estimates its cost.
func ValidatePattern(pattern string) (valid bool, errMsg string, estimate Estimate) {
	if _, err := regexp.Compile(pattern); err != nil {
		return false, err.Error(), EstimateInvalid
	}

	for _, dp := range dangerousPatterns {
		if strings.Contains(pattern, dp) {
			return true, "", EstimateDangerous
		}
	}

	hasMeta := strings.ContainsAny(pattern, "*+?{}")
	switch {
	case len(pattern) < 10 && !hasMeta:
		return true, "", EstimateFast
	case len(pattern) < 50:
		return true, "", EstimateModerate
	default:
		return true, "", EstimateSlow
	}
}

// Match is a single regex hit within a chunk.
type Match struct {
	DocumentID    string
	DocumentTitle string
	PageNumber    *int
	ChunkID       string
	MatchText     string
	Context       string
	StartOffset   int
	EndOffset     int
	LineNumber    int
}

// Query describes a regex scan request.
type Query struct {
	Pattern         string
	CaseInsensitive bool
	Multiline       bool
	DotAll          bool
	ProjectID       string
	DocumentIDs     []string
	ContextChars    int
	Limit           int
	Offset          int
}

// Result is the full response from Engine.Search.
type Result struct {
	Pattern                string
	Matches                []Match
	TotalMatches           int
	TotalChunksWithMatches int
	DocumentsSearched      int
}

// Engine scans chunk content for pattern matches, using SQLite's
// REGEXP operator (registered via RegisterDriver) to filter candidate
// chunks in the database before extracting matches in Go.
type Engine struct {
	DB           *sql.DB
	MaxResults   int
	ContextChars int
}

func NewEngine(db *sql.DB) *Engine {
	return &Engine{DB: db, MaxResults: 1000, ContextChars: 100}
}

// Search scans chunks whose content matches pattern, via SQLite's
// REGEXP operator, then extracts individual matches with context and
// line numbers in Go — the idiomatic-Go substitute for the original's
// database-native regex filter plus Python-side finditer extraction.
func (e *Engine) Search(ctx context.Context, q Query) (*Result, error) {
	compiled, err := compileWithFlags(q.Pattern, q.CaseInsensitive, q.Multiline, q.DotAll)
	if err != nil {
		return nil, apperr.Validation("invalid regex: %v", err)
	}

	contextChars := q.ContextChars
	if contextChars == 0 {
		contextChars = e.ContextChars
	}

	where := "c.content REGEXP ?"
	args := []interface{}{compiled.String()}
	if q.ProjectID != "" {
		where += " AND d.project_id = ?"
		args = append(args, q.ProjectID)
	}
	if len(q.DocumentIDs) > 0 {
		where += " AND c.document_id IN (" + placeholders(len(q.DocumentIDs)) + ")"
		for _, id := range q.DocumentIDs {
			args = append(args, id)
		}
	}

	countRow := e.DB.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT c.chunk_id), COUNT(DISTINCT c.document_id)
		FROM chunks c LEFT JOIN documents d ON c.document_id = d.document_id
		WHERE `+where, args...)
	var chunksWithMatches, documentsSearched int
	if err := countRow.Scan(&chunksWithMatches, &documentsSearched); err != nil {
		return nil, apperr.Fatal(err, "regex count query failed")
	}

	limitArgs := append(append([]interface{}{}, args...), min(1000, e.MaxResults))
	rows, err := e.DB.QueryContext(ctx, `
		SELECT c.chunk_id, c.document_id, c.content, c.chunk_index, c.page_number, d.filename
		FROM chunks c LEFT JOIN documents d ON c.document_id = d.document_id
		WHERE `+where+`
		ORDER BY c.document_id, c.chunk_index
		LIMIT ?
	`, limitArgs...)
	if err != nil {
		return nil, apperr.Fatal(err, "regex search query failed")
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			chunkID, docID, content, filename sql.NullString
			chunkIndex                        int
			pageNumber                        sql.NullInt64
		)
		if err := rows.Scan(&chunkID, &docID, &content, &chunkIndex, &pageNumber, &filename); err != nil {
			return nil, err
		}

		text := content.String
		for _, loc := range compiled.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			ctxStart := start - contextChars
			if ctxStart < 0 {
				ctxStart = 0
			}
			ctxEnd := end + contextChars
			if ctxEnd > len(text) {
				ctxEnd = len(text)
			}
			snippet := text[ctxStart:ctxEnd]
			if ctxStart > 0 {
				snippet = "..." + snippet
			}
			if ctxEnd < len(text) {
				snippet += "..."
			}

			m := Match{
				DocumentID:    docID.String,
				DocumentTitle: filename.String,
				ChunkID:       chunkID.String,
				MatchText:     text[start:end],
				Context:       snippet,
				StartOffset:   start,
				EndOffset:     end,
				LineNumber:    strings.Count(text[:start], "\n") + 1,
			}
			if pageNumber.Valid {
				n := int(pageNumber.Int64)
				m.PageNumber = &n
			}
			matches = append(matches, m)
			if len(matches) >= e.MaxResults {
				break
			}
		}
		if len(matches) >= e.MaxResults {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	total := len(matches)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + q.Limit
	if q.Limit <= 0 || end > total {
		end = total
	}

	return &Result{
		Pattern:                q.Pattern,
		Matches:                matches[start:end],
		TotalMatches:           total,
		TotalChunksWithMatches: chunksWithMatches,
		DocumentsSearched:      documentsSearched,
	}, nil
}

func compileWithFlags(pattern string, caseInsensitive, multiline, dotAll bool) (*regexp.Regexp, error) {
	var flags string
	if caseInsensitive {
		flags += "i"
	}
	if multiline {
		flags += "m"
	}
	if dotAll {
		flags += "s"
	}
	if flags == "" {
		return regexp.Compile(pattern)
	}
	return regexp.Compile("(?" + flags + ")" + pattern)
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ", ")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// driverRegistered guards against registering the same driver name twice
// across multiple Engine instances in one process.
var driverRegistered bool

// RegisterDriver installs a sqlite3 driver under driverName that
// supports the REGEXP operator/function used by Engine.Search, backed
// by Go's regexp package. Call once at process startup, then open
// connections with sql.Open(driverName, dsn) instead of "sqlite3".
func RegisterDriver(driverName string) {
	if driverRegistered {
		return
	}
	driverRegistered = true
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("REGEXP", func(pattern, text string) (bool, error) {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return false, err
				}
				return re.MatchString(text), nil
			}, true)
		},
	})
}
