package search

import (
	"context"
	"testing"
	"time"

	"github.com/mantisfury/arkham-core/internal/vectordb"
)

func TestSemanticEngineSearchEmbedsAndDelegates(t *testing.T) {
	ctx := context.Background()
	vdb := vectordb.NewMockVectorDB()
	if err := vdb.CreateCollection(ctx, "docs", 2, vectordb.MetricCosine); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	vdb.Upsert(ctx, "docs", "c1", []float32{1, 0}, map[string]string{"document_id": "d1", "title": "match"})
	vdb.Upsert(ctx, "docs", "c2", []float32{0, 1}, map[string]string{"document_id": "d2", "title": "no match"})

	engine := NewSemanticEngine(stubSemanticEmbedder{vec: []float32{1, 0}}, vdb, "docs")
	items, err := engine.Search(ctx, Query{Query: "anything", Limit: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 1 || items[0].DocID != "d1" {
		t.Fatalf("expected closest match d1, got %+v", items)
	}
}

func TestSemanticEngineSearchPropagatesEmbedError(t *testing.T) {
	engine := NewSemanticEngine(stubSemanticEmbedder{err: errDummy{}}, vectordb.NewMockVectorDB(), "docs")
	_, err := engine.Search(context.Background(), Query{Query: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
}

type errDummy struct{}

func (errDummy) Error() string { return "embed error" }

func TestToVectorFiltersBuildsRangeFromDateRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	filters := toVectorFilters(&Filters{DateRange: &DateRange{Start: &start}})
	if len(filters) != 1 || filters[0].Op != vectordb.FilterRange {
		t.Fatalf("expected one range filter, got %+v", filters)
	}
	if filters[0].Gte == "" {
		t.Fatalf("expected Gte to be set from DateRange.Start")
	}
}

func TestToVectorFiltersNilFiltersReturnsNil(t *testing.T) {
	if got := toVectorFilters(nil); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}
