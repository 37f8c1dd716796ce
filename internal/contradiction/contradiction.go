// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package contradiction implements the Contradiction Detector: claim
// extraction, similarity pairing, verification, severity grading, and
// chain detection across documents. Grounded on
// internal/worker/analyst.go's checkContradictions (embed + vector
// search + LLM yes/no compare + graphStore.AddEdge) and
// internal/database/graph.go's graph_edges table, generalized from a
// single ad hoc AI prompt into a full staged pipeline.
package contradiction

import (
	"context"
	"strings"
)

// ContradictionType classifies how two claims disagree.
type ContradictionType string

const (
	TypeDirect     ContradictionType = "DIRECT"
	TypeNumeric    ContradictionType = "NUMERIC"
	TypeContextual ContradictionType = "CONTEXTUAL"
	TypeTemporal   ContradictionType = "TEMPORAL"
)

// Severity ranks how strongly two claims disagree.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Claim is one assertion extracted from a document.
type Claim struct {
	ID       string
	DocID    string
	Text     string
	Position int
	Vector   []float32
}

// Status tracks a contradiction's review lifecycle, analogous to
// anomaly.Status.
type Status string

const (
	StatusDetected     Status = "DETECTED"
	StatusConfirmed    Status = "CONFIRMED"
	StatusDismissed    Status = "DISMISSED"
	StatusFalsePositive Status = "FALSE_POSITIVE"
)

// Contradiction is a verified disagreement between two claims from
// different documents.
type Contradiction struct {
	ID          string
	ClaimA      Claim
	ClaimB      Claim
	Type        ContradictionType
	Severity    Severity
	Explanation string
	Confidence  float64
	Status      Status
}

// minWordsPerClaim matches the original's "sentence split filtered to
// >=5 words" simple claim-extraction rule.
const minWordsPerClaim = 5

// ExtractClaims splits text into sentences and keeps those with at
// least minWordsPerClaim words. This is the "simple" extraction mode;
// ClaimExtractor below is the LLM-backed alternative.
func ExtractClaims(docID, text string) []Claim {
	sentences := splitSentences(text)
	claims := make([]Claim, 0, len(sentences))
	for i, s := range sentences {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			continue
		}
		if len(strings.Fields(trimmed)) < minWordsPerClaim {
			continue
		}
		claims = append(claims, Claim{
			DocID:    docID,
			Text:     trimmed,
			Position: i,
		})
	}
	return claims
}

func splitSentences(text string) []string {
	var spans []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			spans = append(spans, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		spans = append(spans, text[start:])
	}
	return spans
}

// ClaimExtractor is the LLM-backed extraction mode: a prompt returns
// structured claims with types, used instead of ExtractClaims when an
// LLM client is configured.
type ClaimExtractor interface {
	ExtractClaims(ctx context.Context, docID, text string) ([]Claim, error)
}
