// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package vectordb

import (
	"context"
	"math"
	"sync"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

type mockPoint struct {
	vector  []float32
	payload map[string]string
}

// MockVectorDB is an in-memory VectorDB for tests and UI-only mode.
type MockVectorDB struct {
	mu          sync.Mutex
	collections map[string]mockCollection
}

type mockCollection struct {
	dim    int
	metric Metric
	points map[string]mockPoint
}

func NewMockVectorDB() *MockVectorDB {
	return &MockVectorDB{collections: map[string]mockCollection{}}
}

func (m *MockVectorDB) CreateCollection(ctx context.Context, name string, dim int, metric Metric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[name] = mockCollection{dim: dim, metric: metric, points: map[string]mockPoint{}}
	return nil
}

func (m *MockVectorDB) DeleteCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

func (m *MockVectorDB) Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		c = mockCollection{dim: len(vector), points: map[string]mockPoint{}}
	}
	if c.dim != 0 && c.dim != len(vector) {
		return apperr.Conflict("dimension mismatch in collection %s: have %d, got %d", collection, c.dim, len(vector))
	}
	c.dim = len(vector)
	c.points[id] = mockPoint{vector: vector, payload: payload}
	m.collections[collection] = c
	return nil
}

func (m *MockVectorDB) Search(ctx context.Context, collection string, queryVector []float32, limit int, scoreThreshold *float32, filters []Filter) ([]Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range filters {
		if f.Op != FilterEq && f.Op != FilterAnyOf && f.Op != FilterRange {
			return nil, apperr.Validation("unsupported filter operator %q", f.Op)
		}
	}

	c, ok := m.collections[collection]
	if !ok {
		return nil, nil
	}
	matches := make([]Match, 0, len(c.points))
	for id, p := range c.points {
		if !matchesFilters(p.payload, filters) {
			continue
		}
		score := cosineSimilarity(queryVector, p.vector)
		if scoreThreshold != nil && score < *scoreThreshold {
			continue
		}
		matches = append(matches, Match{ID: id, Score: score, Payload: p.payload})
	}
	sortMatchesDescending(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *MockVectorDB) Delete(ctx context.Context, collection string, ids []string, filters []Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil
	}
	if len(ids) > 0 {
		for _, id := range ids {
			delete(c.points, id)
		}
		return nil
	}
	for id, p := range c.points {
		if matchesFilters(p.payload, filters) {
			delete(c.points, id)
		}
	}
	return nil
}

func (m *MockVectorDB) Reindex(ctx context.Context, collection string) error { return nil }

func (m *MockVectorDB) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CollectionInfo, 0, len(m.collections))
	for name, c := range m.collections {
		out = append(out, CollectionInfo{Name: name, Dim: c.dim, Count: len(c.points)})
	}
	return out, nil
}

func matchesFilters(payload map[string]string, filters []Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case FilterEq:
			if payload[f.Field] != f.Value {
				return false
			}
		case FilterAnyOf:
			found := false
			for _, v := range f.Values {
				if payload[f.Field] == v {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case FilterRange:
			v := payload[f.Field]
			if f.Gte != "" && v < f.Gte {
				return false
			}
			if f.Lte != "" && v > f.Lte {
				return false
			}
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func sortMatchesDescending(matches []Match) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Score > matches[j-1].Score; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}
