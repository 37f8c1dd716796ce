package search

import (
	"context"
	"errors"
	"testing"

	"github.com/mantisfury/arkham-core/internal/vectordb"
)

type stubSemanticEmbedder struct {
	vec []float32
	err error
}

func (s stubSemanticEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return s.vec, s.err
}

func TestNormalizeWeightsDefaultsToEvenSplit(t *testing.T) {
	s, k := normalizeWeights(0, 0)
	if s != 0.5 || k != 0.5 {
		t.Fatalf("expected 0.5/0.5, got %v/%v", s, k)
	}
}

func TestNormalizeWeightsScalesToSumOne(t *testing.T) {
	s, k := normalizeWeights(0.3, 0.9)
	if s+k < 0.999 || s+k > 1.001 {
		t.Fatalf("expected weights to sum to 1, got %v", s+k)
	}
}

func TestMergeRRFCombinesOverlappingHits(t *testing.T) {
	semantic := []Item{
		{DocID: "d1", ChunkID: "c1", Title: "doc one"},
		{DocID: "d2", ChunkID: "c2", Title: "doc two"},
	}
	keyword := []Item{
		{DocID: "d1", ChunkID: "c1", Excerpt: "excerpt one"},
		{DocID: "d3", ChunkID: "c3", Title: "doc three"},
	}

	merged := mergeRRF(semantic, keyword, 0.5, 0.5)
	if len(merged) != 3 {
		t.Fatalf("expected 3 unique hits, got %d", len(merged))
	}

	var top Item
	for _, it := range merged {
		if it.DocID == "d1" {
			top = it
		}
	}
	if top.Excerpt != "excerpt one" {
		t.Fatalf("expected merged item to carry keyword excerpt, got %+v", top)
	}
	// d1 appears in both lists so should outrank hits present in only one.
	if merged[0].DocID != "d1" {
		t.Fatalf("expected d1 (found by both engines) to rank first, got %+v", merged)
	}
}

func TestHybridEngineSearchMergesBothEngines(t *testing.T) {
	vdb := vectordb.NewMockVectorDB()
	ctx := context.Background()
	if err := vdb.CreateCollection(ctx, "docs", 2, vectordb.MetricCosine); err != nil {
		t.Fatalf("create collection: %v", err)
	}
	vdb.Upsert(ctx, "docs", "c1", []float32{1, 0}, map[string]string{"document_id": "d1", "title": "doc one", "content": "a fox ran"})

	semantic := NewSemanticEngine(stubSemanticEmbedder{vec: []float32{1, 0}}, vdb, "docs")

	db := newKeywordTestDB(t)
	db.Exec(`INSERT INTO documents VALUES ('d2', 'b.txt', 'text/plain', '', '', '2024-01-01T00:00:00Z')`)
	db.Exec(`INSERT INTO chunks VALUES ('c2', 'd2', 'a fox ran fast', 0, NULL)`)
	keyword := NewKeywordEngine(db)

	hybrid := NewHybridEngine(semantic, keyword)
	items, err := hybrid.Search(ctx, Query{Query: "fox", Limit: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 merged hits, got %d: %+v", len(items), items)
	}
}

func TestHybridEngineSearchPropagatesSemanticError(t *testing.T) {
	semantic := NewSemanticEngine(stubSemanticEmbedder{err: errors.New("embed failed")}, vectordb.NewMockVectorDB(), "docs")
	hybrid := NewHybridEngine(semantic, nil)
	_, err := hybrid.Search(context.Background(), Query{Query: "x"})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}
