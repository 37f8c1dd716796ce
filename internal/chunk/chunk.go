// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package chunk implements the Chunker (spec.md §4.10): fixed, sentence,
// and semantic splitting, all returning contiguous-indexed chunks with
// char offsets. Consolidates the teacher's two independent chunkers
// (internal/parser/chunker.go's fixed sliding window and
// internal/processor/chunker.go's sentence-boundary search) into one
// method-selectable implementation, and adds the semantic method named
// by the spec but absent from the teacher.
package chunk

import (
	"context"
	"math"
	"strings"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

// Method selects a chunking strategy.
type Method string

const (
	Fixed    Method = "fixed"
	Sentence Method = "sentence"
	Semantic Method = "semantic"
)

// Chunk is one contiguous, char-offset-indexed segment of the source text.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Embedder is the minimal embedding capability the semantic method needs.
// Satisfied by internal/embeddings.Embedder.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunker splits text per spec.md §4.10. ChunkSize is in characters for
// fixed/sentence; Overlap (characters) is used by the fixed method only;
// Embedder is optional and only consulted
// by the semantic method (falling back to sentence when nil or failing).
type Chunker struct {
	ChunkSize int
	Overlap   int
	Embedder  Embedder
}

func New(chunkSize, overlap int) *Chunker {
	return &Chunker{ChunkSize: chunkSize, Overlap: overlap}
}

// Chunk dispatches to the requested method.
func (c *Chunker) Chunk(ctx context.Context, method Method, text string) ([]Chunk, error) {
	switch method {
	case Fixed, "":
		return c.chunkFixed(text), nil
	case Sentence:
		return c.chunkSentence(text), nil
	case Semantic:
		return c.chunkSemantic(ctx, text)
	default:
		return nil, apperr.Validation("unsupported chunk method %q", method)
	}
}

// chunkFixed slides a chunk_size window with step = max(1, chunk_size -
// overlap), guaranteeing forward progress even when overlap >= chunk_size.
func (c *Chunker) chunkFixed(text string) []Chunk {
	if len(text) == 0 {
		return nil
	}
	step := c.ChunkSize - c.Overlap
	if step < 1 {
		step = 1
	}

	var chunks []Chunk
	idx := 0
	for start := 0; start < len(text); start += step {
		end := start + c.ChunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, Chunk{Index: idx, Text: text[start:end], Start: start, End: end})
		idx++
		if end >= len(text) {
			break
		}
	}
	return chunks
}

// sentenceSpan is a sentence with its byte offsets in the source text.
type sentenceSpan struct {
	text       string
	start, end int
}

// splitSentences splits on '.', '!', '?' per spec.md §4.10, keeping the
// terminator with the sentence and recording offsets into the original text.
func splitSentences(text string) []sentenceSpan {
	var spans []sentenceSpan
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			end := i + 1
			if strings.TrimSpace(text[start:end]) != "" {
				spans = append(spans, sentenceSpan{text: text[start:end], start: start, end: end})
			}
			start = end
		}
	}
	if start < len(text) && strings.TrimSpace(text[start:]) != "" {
		spans = append(spans, sentenceSpan{text: text[start:], start: start, end: len(text)})
	}
	return spans
}

// chunkSentence greedily accumulates sentences until the next one would
// exceed chunk_size, then emits and starts a new chunk.
func (c *Chunker) chunkSentence(text string) []Chunk {
	spans := splitSentences(text)
	if len(spans) == 0 {
		return nil
	}

	var chunks []Chunk
	idx := 0
	curStart := spans[0].start
	curEnd := spans[0].start
	curLen := 0

	flush := func() {
		if curEnd > curStart {
			chunks = append(chunks, Chunk{Index: idx, Text: strings.TrimSpace(text[curStart:curEnd]), Start: curStart, End: curEnd})
			idx++
		}
	}

	for _, s := range spans {
		addLen := s.end - s.start
		if curLen > 0 && curLen+addLen > c.ChunkSize {
			flush()
			curStart = s.start
			curEnd = s.end
			curLen = addLen
			continue
		}
		if curLen == 0 {
			curStart = s.start
		}
		curEnd = s.end
		curLen += addLen
	}
	flush()
	return chunks
}

// chunkSemantic breaks on sentence-embedding dissimilarity, falling back
// to the sentence method when no embedder is configured or embedding
// fails.
func (c *Chunker) chunkSemantic(ctx context.Context, text string) ([]Chunk, error) {
	spans := splitSentences(text)
	if c.Embedder == nil || len(spans) < 3 {
		return c.chunkSentence(text), nil
	}

	texts := make([]string, len(spans))
	for i, s := range spans {
		texts[i] = s.text
	}
	vecs, err := c.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return c.chunkSentence(text), nil
	}

	// Sliding-window-of-2 mean embeddings, then adjacent-window cosine
	// similarity between consecutive windows.
	sims := make([]float64, 0, len(vecs)-2)
	for i := 0; i+1 < len(vecs)-1; i++ {
		winA := meanVec(vecs[i], vecs[i+1])
		winB := meanVec(vecs[i+1], vecs[i+2])
		sims = append(sims, cosine(winA, winB))
	}

	threshold := 0.5
	if len(sims) > 0 {
		mean, std := meanStd(sims)
		t := mean - std
		if t > threshold {
			threshold = t
		}
	}

	minChunkSize := c.ChunkSize / 3

	var chunks []Chunk
	idx := 0
	curStart := spans[0].start
	curEnd := spans[0].start
	curLen := 0

	flush := func(end int) {
		if end > curStart {
			chunks = append(chunks, Chunk{Index: idx, Text: strings.TrimSpace(text[curStart:end]), Start: curStart, End: end})
			idx++
		}
	}

	for i, s := range spans {
		if curLen == 0 {
			curStart = s.start
		}
		curEnd = s.end
		curLen += s.end - s.start

		breakHere := curLen >= c.ChunkSize
		// sims[i] compares the window ending at sentence i+1 to the window
		// starting there; a low similarity means sentence i+1 begins a new
		// topic, so break after sentence i.
		if i < len(sims) && sims[i] < threshold {
			breakHere = true
		}
		if breakHere && curLen < minChunkSize && i+1 < len(spans) {
			breakHere = false // suppress undersized breakpoints
		}

		if breakHere {
			flush(curEnd)
			curLen = 0
		}
	}
	flush(curEnd)

	return chunks, nil
}

func meanVec(a, b []float32) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = (a[i] + b[i]) / 2
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func meanStd(xs []float64) (mean, std float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		d := x - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(xs)))
	return mean, std
}
