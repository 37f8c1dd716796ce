// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package search implements Semantic / Keyword / Hybrid search and the
// Filter Optimizer / Ranker. Ported from the arkham_shard_search
// package (models.py, engines/semantic.py, engines/keyword.py,
// engines/hybrid.py, ranking.py), generalized from its async
// Postgres/asyncpg style to Go's database/sql over SQLite.
package search

import "time"

// SortBy names a result ordering field.
type SortBy string

const (
	SortRelevance SortBy = "relevance"
	SortDate      SortBy = "date"
	SortTitle     SortBy = "title"
)

// SortOrder names ascending/descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DateRange bounds a result set by document creation time.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Filters is the structured predicate set applied before ranking by
// the Filter Optimizer.
type Filters struct {
	DateRange  *DateRange
	EntityIDs  []string
	ProjectIDs []string
	FileTypes  []string
	Tags       []string
}

// Query is a search request shared by every engine.
type Query struct {
	Query          string
	Limit          int
	Offset         int
	SemanticWeight float64
	KeywordWeight  float64
	Filters        *Filters
	SortBy         SortBy
	SortOrder      SortOrder
}

// Item is one search hit, engine-agnostic.
type Item struct {
	DocID      string
	ChunkID    string
	Title      string
	Excerpt    string
	Score      float64
	FileType   string
	CreatedAt  *time.Time
	PageNumber *int
	Highlights []string
	Entities   []string
	ProjectIDs []string
	Metadata   map[string]string
}
