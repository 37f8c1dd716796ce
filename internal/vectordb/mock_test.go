package vectordb

import (
	"context"
	"testing"
)

func TestUpsertAndSearchReturnsDescendingByScore(t *testing.T) {
	db := NewMockVectorDB()
	ctx := context.Background()

	if err := db.CreateCollection(ctx, "documents", 3, MetricCosine); err != nil {
		t.Fatal(err)
	}
	if err := db.Upsert(ctx, "documents", "a", []float32{1, 0, 0}, map[string]string{"source": "x"}); err != nil {
		t.Fatal(err)
	}
	if err := db.Upsert(ctx, "documents", "b", []float32{0.9, 0.1, 0}, map[string]string{"source": "y"}); err != nil {
		t.Fatal(err)
	}
	if err := db.Upsert(ctx, "documents", "c", []float32{0, 1, 0}, map[string]string{"source": "x"}); err != nil {
		t.Fatal(err)
	}

	matches, err := db.Search(ctx, "documents", []float32{1, 0, 0}, 10, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].ID != "a" {
		t.Fatalf("expected exact match 'a' first, got %s", matches[0].ID)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Fatalf("expected descending scores, got %+v", matches)
		}
	}
}

func TestSearchAppliesEqFilter(t *testing.T) {
	db := NewMockVectorDB()
	ctx := context.Background()
	db.CreateCollection(ctx, "documents", 2, MetricCosine)
	db.Upsert(ctx, "documents", "a", []float32{1, 0}, map[string]string{"source": "alpha"})
	db.Upsert(ctx, "documents", "b", []float32{1, 0}, map[string]string{"source": "beta"})

	matches, err := db.Search(ctx, "documents", []float32{1, 0}, 10, nil, []Filter{{Field: "source", Op: FilterEq, Value: "beta"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != "b" {
		t.Fatalf("expected only 'b' to match filter, got %+v", matches)
	}
}

func TestSearchRejectsUnsupportedFilterOperator(t *testing.T) {
	db := NewMockVectorDB()
	ctx := context.Background()
	db.CreateCollection(ctx, "documents", 2, MetricCosine)

	_, err := db.Search(ctx, "documents", []float32{1, 0}, 10, nil, []Filter{{Field: "x", Op: "bogus"}})
	if err == nil {
		t.Fatal("expected error for unsupported filter operator")
	}
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	db := NewMockVectorDB()
	ctx := context.Background()
	db.CreateCollection(ctx, "documents", 3, MetricCosine)
	db.Upsert(ctx, "documents", "a", []float32{1, 0, 0}, nil)

	if err := db.Upsert(ctx, "documents", "b", []float32{1, 0}, nil); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestDeleteByIDsAndByFilter(t *testing.T) {
	db := NewMockVectorDB()
	ctx := context.Background()
	db.CreateCollection(ctx, "documents", 2, MetricCosine)
	db.Upsert(ctx, "documents", "a", []float32{1, 0}, map[string]string{"tag": "keep"})
	db.Upsert(ctx, "documents", "b", []float32{1, 0}, map[string]string{"tag": "drop"})
	db.Upsert(ctx, "documents", "c", []float32{1, 0}, map[string]string{"tag": "drop"})

	if err := db.Delete(ctx, "documents", []string{"a"}, nil); err != nil {
		t.Fatal(err)
	}
	if err := db.Delete(ctx, "documents", nil, []Filter{{Field: "tag", Op: FilterEq, Value: "drop"}}); err != nil {
		t.Fatal(err)
	}

	cols, err := db.ListCollections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 || cols[0].Count != 0 {
		t.Fatalf("expected collection emptied, got %+v", cols)
	}
}
