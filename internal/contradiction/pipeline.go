// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package contradiction

import (
	"context"

	"github.com/google/uuid"
)

// Embedder computes a claim embedding, satisfied by internal/embeddings.Embedder.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline runs the full stage sequence: extraction is the caller's
// responsibility (ExtractClaims or a ClaimExtractor), Pipeline takes
// already-extracted claims from >=2 documents and returns confirmed
// contradictions.
type Pipeline struct {
	Embedder  Embedder
	Verifier  Verifier
	Threshold float64 // similarity pairing threshold, default 0.7
}

func NewPipeline(embedder Embedder, verifier Verifier) *Pipeline {
	return &Pipeline{Embedder: embedder, Verifier: verifier, Threshold: 0.7}
}

// Detect embeds claims, pairs candidates, verifies each pair, and
// assigns severity to confirmed contradictions.
func (p *Pipeline) Detect(ctx context.Context, claims []Claim) ([]Contradiction, error) {
	if len(claims) == 0 {
		return nil, nil
	}

	texts := make([]string, len(claims))
	for i, c := range claims {
		texts[i] = c.Text
	}
	vectors, err := p.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	embedded := make([]Claim, len(claims))
	for i, c := range claims {
		c.Vector = vectors[i]
		embedded[i] = c
	}

	threshold := p.Threshold
	if threshold == 0 {
		threshold = 0.7
	}
	pairs := PairCandidates(embedded, threshold)

	var contradictions []Contradiction
	for _, pair := range pairs {
		result, err := p.Verifier.Verify(ctx, pair)
		if err != nil {
			return nil, err
		}
		if result == nil || !result.Contradicts {
			continue
		}
		severity := result.Severity
		if severity == "" {
			severity = AssignSeverity(pair.A.Text, pair.B.Text, result.Type, result.Confidence)
		}
		contradictions = append(contradictions, Contradiction{
			ID:          uuid.NewString(),
			ClaimA:      pair.A,
			ClaimB:      pair.B,
			Type:        result.Type,
			Severity:    severity,
			Explanation: result.Explanation,
			Confidence:  result.Confidence,
		})
	}
	return contradictions, nil
}
