// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package contradiction

import "testing"

func TestPairCandidatesSkipsSameDocument(t *testing.T) {
	claims := []Claim{
		{DocID: "a", Text: "the deal closed at a high price", Vector: []float32{1, 0, 0}},
		{DocID: "a", Text: "the deal closed at a high price", Vector: []float32{1, 0, 0}},
	}
	pairs := PairCandidates(claims, 0.7)
	if len(pairs) != 0 {
		t.Fatalf("expected 0 pairs across same document, got %d", len(pairs))
	}
}

func TestPairCandidatesBelowThresholdExcluded(t *testing.T) {
	claims := []Claim{
		{DocID: "a", Text: "revenue grew substantially", Vector: []float32{1, 0, 0}},
		{DocID: "b", Text: "weather was mild", Vector: []float32{0, 1, 0}},
	}
	pairs := PairCandidates(claims, 0.7)
	if len(pairs) != 0 {
		t.Fatalf("expected 0 pairs below threshold, got %d", len(pairs))
	}
}

func TestPairCandidatesNearDuplicateExcludedWithoutNegation(t *testing.T) {
	claims := []Claim{
		{DocID: "a", Text: "the contract was signed in March", Vector: []float32{1, 0, 0}},
		{DocID: "b", Text: "the contract was signed in March", Vector: []float32{1, 0, 0.001}},
	}
	pairs := PairCandidates(claims, 0.7)
	if len(pairs) != 0 {
		t.Fatalf("expected near-duplicate pair to be skipped, got %d", len(pairs))
	}
}

func TestPairCandidatesNearDuplicateKeptWithNegationContrast(t *testing.T) {
	claims := []Claim{
		{DocID: "a", Text: "the vendor was paid in full", Vector: []float32{1, 0, 0}},
		{DocID: "b", Text: "the vendor was not paid in full", Vector: []float32{1, 0, 0.001}},
	}
	pairs := PairCandidates(claims, 0.7)
	if len(pairs) != 1 {
		t.Fatalf("expected negation-contrasted near-duplicate to be kept, got %d", len(pairs))
	}
}

func TestPairCandidatesAboveThresholdIncluded(t *testing.T) {
	claims := []Claim{
		{DocID: "a", Text: "the invoice totaled nine thousand dollars", Vector: []float32{1, 0, 0}},
		{DocID: "b", Text: "the invoice totaled two thousand dollars", Vector: []float32{0.8, 0.6, 0}},
	}
	pairs := PairCandidates(claims, 0.7)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].Similarity <= 0.7 {
		t.Errorf("expected similarity above threshold, got %f", pairs[0].Similarity)
	}
}

func TestCosineSimilarityOrthogonalVectorsIsZero(t *testing.T) {
	sim := cosineSimilarity([]float32{1, 0}, []float32{0, 1})
	if sim != 0 {
		t.Errorf("expected 0 similarity for orthogonal vectors, got %f", sim)
	}
}

func TestCosineSimilarityEmptyVectorIsZero(t *testing.T) {
	sim := cosineSimilarity(nil, []float32{1, 0})
	if sim != 0 {
		t.Errorf("expected 0 similarity when a vector is empty, got %f", sim)
	}
}
