// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package contradiction

import (
	"context"
	"testing"
)

type stubAsker struct {
	response string
	err      error
}

func (s stubAsker) Ask(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func TestLLMVerifierParsesJSONResponse(t *testing.T) {
	v := NewLLMVerifier(stubAsker{response: `{"contradicts": true, "type": "DIRECT", "severity": "HIGH", "explanation": "disagree", "confidence": 0.9}`})
	result, err := v.Verify(context.Background(), Pair{A: Claim{Text: "a"}, B: Claim{Text: "b"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Contradicts || result.Type != TypeDirect || result.Severity != SeverityHigh {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestLLMVerifierStripsMarkdownCodeFence(t *testing.T) {
	v := NewLLMVerifier(stubAsker{response: "```json\n{\"contradicts\": false, \"confidence\": 0.1}\n```"})
	result, err := v.Verify(context.Background(), Pair{A: Claim{Text: "a"}, B: Claim{Text: "b"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Contradicts {
		t.Errorf("expected no contradiction, got %+v", result)
	}
}

func TestLLMVerifierPropagatesAskError(t *testing.T) {
	v := NewLLMVerifier(stubAsker{err: context.DeadlineExceeded})
	_, err := v.Verify(context.Background(), Pair{A: Claim{Text: "a"}, B: Claim{Text: "b"}})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestLLMVerifierInvalidJSONReturnsError(t *testing.T) {
	v := NewLLMVerifier(stubAsker{response: "not json at all"})
	_, err := v.Verify(context.Background(), Pair{A: Claim{Text: "a"}, B: Claim{Text: "b"}})
	if err == nil {
		t.Fatal("expected parse error")
	}
}
