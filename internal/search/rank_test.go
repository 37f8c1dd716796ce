package search

import (
	"testing"
	"time"
)

func TestSortItemsByRelevanceDescending(t *testing.T) {
	items := []Item{{Score: 0.2}, {Score: 0.9}, {Score: 0.5}}
	sorted := SortItems(items, SortRelevance, SortDesc)
	if sorted[0].Score != 0.9 || sorted[2].Score != 0.2 {
		t.Fatalf("expected descending scores, got %+v", sorted)
	}
}

func TestSortItemsByTitleAscending(t *testing.T) {
	items := []Item{{Title: "zebra"}, {Title: "apple"}, {Title: "mango"}}
	sorted := SortItems(items, SortTitle, SortAsc)
	if sorted[0].Title != "apple" || sorted[2].Title != "zebra" {
		t.Fatalf("expected alphabetical order, got %+v", sorted)
	}
}

func TestRerankByEntitiesBoostsMatches(t *testing.T) {
	items := []Item{
		{DocID: "a", Score: 1.0, Entities: []string{"ent1"}},
		{DocID: "b", Score: 1.0, Entities: []string{"ent2"}},
	}
	out := RerankByEntities(items, []string{"ent1"}, 0.5)
	if out[0].Score <= out[1].Score {
		t.Fatalf("expected item with matching entity to outscore the other, got %+v", out)
	}
}

func TestRerankByEntitiesNoEntityIDsIsNoop(t *testing.T) {
	items := []Item{{Score: 1.0}}
	out := RerankByEntities(items, nil, 0.5)
	if out[0].Score != 1.0 {
		t.Fatalf("expected unchanged score, got %v", out[0].Score)
	}
}

func TestDeduplicateKeepsHighestScore(t *testing.T) {
	items := []Item{
		{DocID: "d1", ChunkID: "c1", Score: 0.3},
		{DocID: "d1", ChunkID: "c1", Score: 0.8},
		{DocID: "d2", ChunkID: "c2", Score: 0.5},
	}
	out := Deduplicate(items)
	if len(out) != 2 {
		t.Fatalf("expected 2 deduped items, got %d", len(out))
	}
	for _, it := range out {
		if it.DocID == "d1" && it.Score != 0.8 {
			t.Fatalf("expected highest score 0.8 kept, got %v", it.Score)
		}
	}
}

func TestBoostExactMatchesFavorsTitleOverExcerpt(t *testing.T) {
	items := []Item{
		{DocID: "a", Score: 1.0, Title: "the quick fox"},
		{DocID: "b", Score: 1.0, Excerpt: "a fox ran by"},
		{DocID: "c", Score: 1.0, Title: "unrelated", Excerpt: "also unrelated"},
	}
	out := BoostExactMatches(items, "fox")
	if out[0].Score <= out[1].Score {
		t.Fatalf("expected title match to outscore excerpt match, got %+v", out)
	}
	if out[2].Score != 1.0 {
		t.Fatalf("expected non-matching item unchanged, got %v", out[2].Score)
	}
}

func TestDiversifyBySourceCapsPerDocument(t *testing.T) {
	items := []Item{
		{DocID: "d1"}, {DocID: "d1"}, {DocID: "d1"},
		{DocID: "d2"},
	}
	out := DiversifyBySource(items, 2)
	if len(out) != 3 {
		t.Fatalf("expected 3 items (2 from d1, 1 from d2), got %d", len(out))
	}
	count := 0
	for _, it := range out {
		if it.DocID == "d1" {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected at most 2 from d1, got %d", count)
	}
}

func TestRerankByRecencyFavorsNewerItems(t *testing.T) {
	now := time.Now()
	old := now.Add(-365 * 24 * time.Hour)
	fresh := now.Add(-1 * time.Hour)
	items := []Item{
		{DocID: "old", Score: 1.0, CreatedAt: &old},
		{DocID: "fresh", Score: 1.0, CreatedAt: &fresh},
	}
	nowUnix := float64(now.Unix()) / 86400.0
	out := RerankByRecency(items, nowUnix, 1.0)
	var oldScore, freshScore float64
	for _, it := range out {
		if it.DocID == "old" {
			oldScore = it.Score
		} else {
			freshScore = it.Score
		}
	}
	if freshScore <= oldScore {
		t.Fatalf("expected fresh item to outscore old item, fresh=%v old=%v", freshScore, oldScore)
	}
}
