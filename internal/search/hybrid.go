// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Hybrid search merges Semantic and Keyword result sets with Reciprocal
// Rank Fusion, ported verbatim (weight normalization, 1-based rank,
// k=60) from original_source's engines/hybrid.py.
package search

import (
	"context"
	"sort"
)

const rrfK = 60.0

// HybridEngine runs Semantic and Keyword search concurrently-in-spirit
// (sequentially here, since both are cheap local calls) and fuses their
// rankings with RRF.
type HybridEngine struct {
	Semantic *SemanticEngine
	Keyword  *KeywordEngine
}

func NewHybridEngine(semantic *SemanticEngine, keyword *KeywordEngine) *HybridEngine {
	return &HybridEngine{Semantic: semantic, Keyword: keyword}
}

func (e *HybridEngine) Search(ctx context.Context, q Query) ([]Item, error) {
	semanticWeight, keywordWeight := normalizeWeights(q.SemanticWeight, q.KeywordWeight)

	var semanticItems, keywordItems []Item
	var err error

	if e.Semantic != nil {
		semanticItems, err = e.Semantic.Search(ctx, q)
		if err != nil {
			return nil, err
		}
	}
	if e.Keyword != nil {
		keywordItems, err = e.Keyword.Search(ctx, q)
		if err != nil {
			return nil, err
		}
	}

	merged := mergeRRF(semanticItems, keywordItems, semanticWeight, keywordWeight)

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit < len(merged) {
		merged = merged[:limit]
	}
	return merged, nil
}

// normalizeWeights defaults to an even 0.5/0.5 split and otherwise scales
// the two weights so they sum to 1.
func normalizeWeights(semantic, keyword float64) (float64, float64) {
	if semantic == 0 && keyword == 0 {
		return 0.5, 0.5
	}
	total := semantic + keyword
	if total <= 0 {
		return 0.5, 0.5
	}
	return semantic / total, keyword / total
}

type rrfKey struct {
	docID, chunkID string
}

// mergeRRF fuses two ranked lists by reciprocal rank: each list
// contributes weight / (k + rank) to a hit's score, keyed by
// (doc_id, chunk_id) so the same chunk found by both engines
// accumulates both contributions.
func mergeRRF(semantic, keyword []Item, semanticWeight, keywordWeight float64) []Item {
	scores := make(map[rrfKey]float64)
	items := make(map[rrfKey]Item)

	addList := func(list []Item, weight float64) {
		for rank, it := range list {
			k := rrfKey{docID: it.DocID, chunkID: it.ChunkID}
			scores[k] += weight * (1.0 / (rrfK + float64(rank+1)))
			if existing, ok := items[k]; ok {
				items[k] = mergeItem(existing, it)
			} else {
				items[k] = it
			}
		}
	}
	addList(semantic, semanticWeight)
	addList(keyword, keywordWeight)

	out := make([]Item, 0, len(items))
	for k, it := range items {
		it.Score = scores[k]
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// mergeItem combines fields from two partial views of the same chunk
// (one engine may have highlights the other lacks).
func mergeItem(a, b Item) Item {
	if a.Title == "" {
		a.Title = b.Title
	}
	if a.Excerpt == "" {
		a.Excerpt = b.Excerpt
	}
	if a.FileType == "" {
		a.FileType = b.FileType
	}
	if a.CreatedAt == nil {
		a.CreatedAt = b.CreatedAt
	}
	if a.PageNumber == nil {
		a.PageNumber = b.PageNumber
	}
	if len(a.Highlights) == 0 {
		a.Highlights = b.Highlights
	} else {
		a.Highlights = append(a.Highlights, b.Highlights...)
	}
	if len(a.Metadata) == 0 {
		a.Metadata = b.Metadata
	}
	return a
}
