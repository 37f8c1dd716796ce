// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package contradiction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Asker is the minimal LLM capability this verifier needs, satisfied
// by internal/llm.Client.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// LLMVerifier asks an LLM to judge whether a candidate pair
// contradicts, grounded on the askAIWithExplanation prompt-and-parse
// pattern but requesting structured JSON instead of a YES/NO first
// line.
type LLMVerifier struct {
	Asker Asker
}

func NewLLMVerifier(asker Asker) *LLMVerifier {
	return &LLMVerifier{Asker: asker}
}

func (v *LLMVerifier) Verify(ctx context.Context, pair Pair) (*VerifyResult, error) {
	prompt := fmt.Sprintf(`Compare these two claims from different documents and determine if they contradict each other.

Claim A: %s
Claim B: %s

Respond with ONLY a JSON object of the form:
{"contradicts": true|false, "type": "DIRECT"|"NUMERIC"|"CONTEXTUAL"|"TEMPORAL", "severity": "HIGH"|"MEDIUM"|"LOW", "explanation": "...", "confidence": 0.0-1.0}`, pair.A.Text, pair.B.Text)

	response, err := v.Asker.Ask(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var result VerifyResult
	clean := strings.TrimSpace(response)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(clean)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse LLM contradiction verdict: %w", err)
	}
	return &result, nil
}
