// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package contradiction

import (
	"context"
	"errors"
	"testing"
)

type stubPipelineEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s stubPipelineEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vectors[t]
	}
	return out, nil
}

func TestPipelineDetectConfirmsContradictionAcrossDocuments(t *testing.T) {
	claims := []Claim{
		{DocID: "doc-a", Text: "the vendor was paid in full by March"},
		{DocID: "doc-b", Text: "the vendor was not paid in full by March"},
	}
	embedder := stubPipelineEmbedder{vectors: map[string][]float32{
		claims[0].Text: {1, 0, 0},
		claims[1].Text: {1, 0, 0.01},
	}}
	p := NewPipeline(embedder, HeuristicVerifier{})
	results, err := p.Detect(context.Background(), claims)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 contradiction, got %d: %+v", len(results), results)
	}
	if results[0].Type != TypeDirect {
		t.Errorf("expected DIRECT type, got %s", results[0].Type)
	}
	if results[0].ID == "" {
		t.Error("expected generated contradiction ID")
	}
}

func TestPipelineDetectNoClaimsReturnsNil(t *testing.T) {
	p := NewPipeline(stubPipelineEmbedder{}, HeuristicVerifier{})
	results, err := p.Detect(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results, got %+v", results)
	}
}

func TestPipelineDetectPropagatesEmbedError(t *testing.T) {
	p := NewPipeline(stubPipelineEmbedder{err: errors.New("embed down")}, HeuristicVerifier{})
	_, err := p.Detect(context.Background(), []Claim{{DocID: "a", Text: "some claim text here"}})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestPipelineDetectUnrelatedClaimsYieldNoContradictions(t *testing.T) {
	claims := []Claim{
		{DocID: "doc-a", Text: "the weather was sunny all week"},
		{DocID: "doc-b", Text: "quarterly revenue exceeded expectations"},
	}
	embedder := stubPipelineEmbedder{vectors: map[string][]float32{
		claims[0].Text: {1, 0, 0},
		claims[1].Text: {0, 1, 0},
	}}
	p := NewPipeline(embedder, HeuristicVerifier{})
	results, err := p.Detect(context.Background(), claims)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no contradictions, got %d", len(results))
	}
}
