// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Filter Optimizer / Ranker, ported from ranking.py: ResultRanker
// (sort, entity boost, recency decay, dedup, exact-match boost) and
// DiversityRanker (diversify_by_source).
package search

import (
	"math"
	"sort"
	"strings"
)

// SortItems orders items by the requested field. Relevance sorts by
// Score descending regardless of SortOrder (score is already a
// "bigger is better" quantity); Date and Title honor SortOrder.
func SortItems(items []Item, by SortBy, order SortOrder) []Item {
	out := make([]Item, len(items))
	copy(out, items)

	asc := order == SortAsc

	switch by {
	case SortDate:
		sort.SliceStable(out, func(i, j int) bool {
			ti, tj := out[i].CreatedAt, out[j].CreatedAt
			if ti == nil || tj == nil {
				return false
			}
			if asc {
				return ti.Before(*tj)
			}
			return ti.After(*tj)
		})
	case SortTitle:
		sort.SliceStable(out, func(i, j int) bool {
			if asc {
				return out[i].Title < out[j].Title
			}
			return out[i].Title > out[j].Title
		})
	default: // SortRelevance
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Score > out[j].Score
		})
	}
	return out
}

// RerankByEntities boosts items whose Entities overlap entityIDs:
// score *= 1.0 + boost*matches, mirroring ranking.py's
// rerank_by_entities.
func RerankByEntities(items []Item, entityIDs []string, boost float64) []Item {
	if len(entityIDs) == 0 {
		return items
	}
	wanted := make(map[string]bool, len(entityIDs))
	for _, id := range entityIDs {
		wanted[id] = true
	}

	out := make([]Item, len(items))
	for i, it := range items {
		matches := 0
		for _, e := range it.Entities {
			if wanted[e] {
				matches++
			}
		}
		if matches > 0 {
			it.Score *= 1.0 + boost*float64(matches)
		}
		out[i] = it
	}
	return out
}

// RerankByRecency blends each item's score with a hyperbolic recency
// decay, 1.0/(1.0 + age_days*0.1), weighted by decayFactor — ported
// from ranking.py's rerank_by_recency.
func RerankByRecency(items []Item, now float64, decayFactor float64) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		if it.CreatedAt == nil {
			out[i] = it
			continue
		}
		ageDays := math.Max(0, now-float64(it.CreatedAt.Unix())/86400.0)
		decay := 1.0 / (1.0 + ageDays*0.1)
		it.Score = it.Score*(1-decayFactor) + it.Score*decay*decayFactor
		out[i] = it
	}
	return out
}

// Deduplicate keeps, for each (doc_id, chunk_id), only the highest
// scoring occurrence.
func Deduplicate(items []Item) []Item {
	best := make(map[rrfKey]Item)
	order := make([]rrfKey, 0, len(items))
	for _, it := range items {
		k := rrfKey{docID: it.DocID, chunkID: it.ChunkID}
		existing, ok := best[k]
		if !ok {
			order = append(order, k)
			best[k] = it
			continue
		}
		if it.Score > existing.Score {
			best[k] = it
		}
	}
	out := make([]Item, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

// BoostExactMatches raises the score of items whose title or excerpt
// contains query as an exact (case-insensitive) substring, title
// matches weighted higher than excerpt matches.
func BoostExactMatches(items []Item, query string) []Item {
	if query == "" {
		return items
	}
	q := strings.ToLower(query)
	out := make([]Item, len(items))
	for i, it := range items {
		if strings.Contains(strings.ToLower(it.Title), q) {
			it.Score *= 1.5
		} else if strings.Contains(strings.ToLower(it.Excerpt), q) {
			it.Score *= 1.2
		}
		out[i] = it
	}
	return out
}

// DiversifyBySource caps the number of results taken from any single
// document (source), preserving relative order, per ranking.py's
// DiversityRanker.diversify_by_source.
func DiversifyBySource(items []Item, maxPerSource int) []Item {
	if maxPerSource <= 0 {
		return items
	}
	counts := make(map[string]int)
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if counts[it.DocID] >= maxPerSource {
			continue
		}
		counts[it.DocID]++
		out = append(out, it)
	}
	return out
}
