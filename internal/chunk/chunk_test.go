package chunk

import (
	"context"
	"strings"
	"testing"
)

func TestFixedChunkStepNeverStalls(t *testing.T) {
	c := New(100, 150) // overlap > chunk_size would otherwise loop forever
	text := strings.Repeat("x", 500)

	chunks, err := c.Chunk(context.Background(), Fixed, text)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	if chunks[len(chunks)-1].End != len(text) {
		t.Fatalf("expected last chunk to reach end of text, got %+v", chunks[len(chunks)-1])
	}
}

func TestFixedChunkOffsetsAreContiguousIndexed(t *testing.T) {
	c := New(1000, 200)
	text := strings.Repeat("This is a sample paragraph. It has several sentences. ", 40)

	chunks, err := c.Chunk(context.Background(), Fixed, text)
	if err != nil {
		t.Fatal(err)
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Fatalf("expected contiguous index %d, got %d", i, ch.Index)
		}
		if text[ch.Start:ch.End] != ch.Text {
			t.Fatalf("chunk %d text does not match its own offsets", i)
		}
	}
}

func TestSentenceChunkRespectsBoundaries(t *testing.T) {
	c := New(80, 0)
	text := strings.Repeat("This is sentence one. This is sentence two. This is sentence three. ", 10)

	chunks, err := c.Chunk(context.Background(), Sentence, text)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		trimmed := strings.TrimSpace(ch.Text)
		if trimmed == "" {
			continue
		}
		last := trimmed[len(trimmed)-1]
		if last != '.' && last != '!' && last != '?' {
			t.Fatalf("expected chunk to end on a sentence boundary, got %q", ch.Text)
		}
	}
}

func TestSentenceChunkEmptyText(t *testing.T) {
	c := New(1000, 100)
	chunks, err := c.Chunk(context.Background(), Sentence, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected 0 chunks for empty text, got %d", len(chunks))
	}
}

type stubEmbedder struct{}

// EmbedBatch returns a vector per sentence whose direction flips every
// 3 sentences, simulating a topic shift the semantic method should catch.
func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		if (i/3)%2 == 0 {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func TestSemanticChunkFallsBackWithoutEmbedder(t *testing.T) {
	c := New(1000, 100)
	text := "One. Two. Three. Four."
	chunks, err := c.Chunk(context.Background(), Semantic, text)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected fallback to sentence chunking to produce chunks")
	}
}

func TestSemanticChunkUsesEmbedderWhenAvailable(t *testing.T) {
	c := &Chunker{ChunkSize: 1000, Overlap: 0, Embedder: stubEmbedder{}}
	text := strings.Repeat("A topic sentence here. ", 6)

	chunks, err := c.Chunk(context.Background(), Semantic, text)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
}

func TestUnsupportedMethodIsValidationError(t *testing.T) {
	c := New(1000, 100)
	_, err := c.Chunk(context.Background(), Method("bogus"), "text")
	if err == nil {
		t.Fatal("expected error for unsupported method")
	}
}
