package embeddings

import (
	"context"
	"testing"

	"github.com/mantisfury/arkham-core/internal/bus"
	"github.com/mantisfury/arkham-core/internal/vectordb"
)

func testFactory(dims map[string]int) Factory {
	return func(modelName string) (Embedder, ModelInfo, error) {
		dim, ok := dims[modelName]
		if !ok {
			dim = 384
		}
		return NewMockEmbedder(dim), ModelInfo{Name: modelName, Dimensions: dim, MaxLength: 512, Device: "cpu"}, nil
	}
}

func TestEmbedBatchLazyLoadsAndCaches(t *testing.T) {
	calls := 0
	factory := func(modelName string) (Embedder, ModelInfo, error) {
		calls++
		return NewMockEmbedder(16), ModelInfo{Name: modelName, Dimensions: 16}, nil
	}
	m := NewManager(factory, 10, nil, nil, nil)

	ctx := context.Background()
	out1, err := m.EmbedBatch(ctx, "mock:v1", []string{"hello", "world"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out1) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(out1))
	}

	out2, err := m.EmbedBatch(ctx, "mock:v1", []string{"hello"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out2[0]) != len(out1[0]) {
		t.Fatal("expected cached vector to match original")
	}
	if calls != 1 {
		t.Fatalf("expected model loaded exactly once (lazy load), got %d calls", calls)
	}
}

func TestSwitchModelSameDimensionSkipsWipe(t *testing.T) {
	factory := testFactory(map[string]int{"mock:v1": 16, "mock:v2": 16})
	m := NewManager(factory, 10, nil, nil, nil)
	ctx := context.Background()

	if _, err := m.EmbedBatch(ctx, "mock:v1", []string{"a"}, 0); err != nil {
		t.Fatal(err)
	}

	result, err := m.SwitchModel(ctx, "mock:v2", false)
	if err != nil {
		t.Fatal(err)
	}
	if result.RequiresWipe || result.CollectionsWiped {
		t.Fatalf("expected no wipe for same-dimension switch, got %+v", result)
	}
}

func TestSwitchModelDifferentDimensionRequiresConfirmation(t *testing.T) {
	vdb := vectordb.NewMockVectorDB()
	ctx := context.Background()
	vdb.CreateCollection(ctx, "documents", 16, vectordb.MetricCosine)
	vdb.Upsert(ctx, "documents", "a", make([]float32, 16), nil)

	factory := testFactory(map[string]int{"mock:v1": 16, "mock:v2": 32})
	m := NewManager(factory, 10, vdb, bus.New(), []string{"documents"})

	if _, err := m.EmbedBatch(ctx, "mock:v1", []string{"a"}, 0); err != nil {
		t.Fatal(err)
	}

	result, err := m.SwitchModel(ctx, "mock:v2", false)
	if err != nil {
		t.Fatal(err)
	}
	if !result.RequiresWipe {
		t.Fatal("expected requires_wipe=true for dimension change without confirmation")
	}
	if len(result.AffectedCollections) != 1 || result.AffectedCollections[0] != "documents" {
		t.Fatalf("expected 'documents' reported as affected, got %+v", result.AffectedCollections)
	}

	cols, _ := vdb.ListCollections(ctx)
	if cols[0].Count != 1 {
		t.Fatal("expected collection untouched without confirmation")
	}
}

func TestSwitchModelWithConfirmationWipesAndRecreates(t *testing.T) {
	vdb := vectordb.NewMockVectorDB()
	ctx := context.Background()
	vdb.CreateCollection(ctx, "documents", 16, vectordb.MetricCosine)
	vdb.Upsert(ctx, "documents", "a", make([]float32, 16), nil)

	factory := testFactory(map[string]int{"mock:v1": 16, "mock:v2": 32})
	b := bus.New()
	var switched int
	b.Subscribe("embed.model.switched", func(ctx context.Context, ev bus.Event) error {
		switched++
		return nil
	})
	m := NewManager(factory, 10, vdb, b, []string{"documents"})

	if _, err := m.EmbedBatch(ctx, "mock:v1", []string{"a"}, 0); err != nil {
		t.Fatal(err)
	}

	result, err := m.SwitchModel(ctx, "mock:v2", true)
	if err != nil {
		t.Fatal(err)
	}
	if !result.CollectionsWiped {
		t.Fatal("expected collections_wiped=true")
	}

	cols, err := vdb.ListCollections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 || cols[0].Dim != 32 || cols[0].Count != 0 {
		t.Fatalf("expected collection recreated at new dimension and empty, got %+v", cols)
	}
	if switched != 1 {
		t.Fatalf("expected embed.model.switched emitted once, got %d", switched)
	}
}
