// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package search

import (
	"context"

	"github.com/mantisfury/arkham-core/internal/vectordb"
)

// Embedder is the minimal capability SemanticEngine needs from the
// Embedding Manager.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// SemanticEngine embeds the query and delegates to the Vector Store.
type SemanticEngine struct {
	Embedder   Embedder
	VectorDB   vectordb.VectorDB
	Collection string
}

func NewSemanticEngine(embedder Embedder, vdb vectordb.VectorDB, collection string) *SemanticEngine {
	return &SemanticEngine{Embedder: embedder, VectorDB: vdb, Collection: collection}
}

func (e *SemanticEngine) Search(ctx context.Context, q Query) ([]Item, error) {
	vec, err := e.Embedder.EmbedText(ctx, q.Query)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	filters := toVectorFilters(q.Filters)
	matches, err := e.VectorDB.Search(ctx, e.Collection, vec, limit+q.Offset, nil, filters)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(matches))
	for _, m := range matches {
		items = append(items, matchToItem(m))
	}
	return items, nil
}

func matchToItem(m vectordb.Match) Item {
	item := Item{
		DocID:    m.Payload["document_id"],
		ChunkID:  m.ID,
		Title:    m.Payload["title"],
		Excerpt:  m.Payload["content"],
		Score:    float64(m.Score),
		FileType: m.Payload["mime_type"],
		Metadata: m.Payload,
	}
	return item
}

func toVectorFilters(f *Filters) []vectordb.Filter {
	if f == nil {
		return nil
	}
	var out []vectordb.Filter
	if len(f.ProjectIDs) > 0 {
		out = append(out, vectordb.Filter{Field: "project_id", Op: vectordb.FilterAnyOf, Values: f.ProjectIDs})
	}
	if len(f.FileTypes) > 0 {
		out = append(out, vectordb.Filter{Field: "mime_type", Op: vectordb.FilterAnyOf, Values: f.FileTypes})
	}
	if f.DateRange != nil {
		rf := vectordb.Filter{Field: "created_at", Op: vectordb.FilterRange}
		if f.DateRange.Start != nil {
			rf.Gte = f.DateRange.Start.Format("2006-01-02T15:04:05Z07:00")
		}
		if f.DateRange.End != nil {
			rf.Lte = f.DateRange.End.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, rf)
	}
	return out
}
