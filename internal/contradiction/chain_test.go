// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package contradiction

import "testing"

func TestDetectChainsLinearChainOfThreeDocuments(t *testing.T) {
	contradictions := []Contradiction{
		{ID: "c1", ClaimA: Claim{DocID: "A"}, ClaimB: Claim{DocID: "B"}},
		{ID: "c2", ClaimA: Claim{DocID: "B"}, ClaimB: Claim{DocID: "C"}},
	}
	chains := DetectChains(contradictions)
	if len(chains) != 1 {
		t.Fatalf("expected 1 chain, got %d: %+v", len(chains), chains)
	}
	if len(chains[0].DocumentIDs) != 3 || len(chains[0].ContradictionIDs) != 2 {
		t.Fatalf("expected chain of 3 documents / 2 edges, got %+v", chains[0])
	}
}

func TestDetectChainsTriangleYieldsOneThreeVertexChain(t *testing.T) {
	// Scenario: document A contradicts B, B contradicts C, C contradicts A.
	// A plain DFS walk over 3 distinct vertices can traverse at most 2 of
	// the triangle's 3 edges (the cycle-closing edge is never walked
	// because its far endpoint is already visited), so this follows the
	// formal >=3 vertices / >=2 edges invariant rather than surfacing all
	// three contradiction IDs.
	contradictions := []Contradiction{
		{ID: "c-ab", ClaimA: Claim{DocID: "A"}, ClaimB: Claim{DocID: "B"}},
		{ID: "c-bc", ClaimA: Claim{DocID: "B"}, ClaimB: Claim{DocID: "C"}},
		{ID: "c-ca", ClaimA: Claim{DocID: "C"}, ClaimB: Claim{DocID: "A"}},
	}
	chains := DetectChains(contradictions)
	if len(chains) != 1 {
		t.Fatalf("expected 1 chain, got %d: %+v", len(chains), chains)
	}
	chain := chains[0]
	if len(chain.DocumentIDs) != 3 {
		t.Fatalf("expected 3 documents in chain, got %d: %+v", len(chain.DocumentIDs), chain)
	}
	if len(chain.ContradictionIDs) != 2 {
		t.Fatalf("expected 2 edges in chain, got %d: %+v", len(chain.ContradictionIDs), chain)
	}
}

func TestDetectChainsBelowMinimumDocsYieldsNoChain(t *testing.T) {
	contradictions := []Contradiction{
		{ID: "c1", ClaimA: Claim{DocID: "A"}, ClaimB: Claim{DocID: "B"}},
	}
	chains := DetectChains(contradictions)
	if len(chains) != 0 {
		t.Fatalf("expected no chains for a single edge, got %d", len(chains))
	}
}

func TestDetectChainsCapsAtMaxDepth(t *testing.T) {
	contradictions := []Contradiction{
		{ID: "c1", ClaimA: Claim{DocID: "A"}, ClaimB: Claim{DocID: "B"}},
		{ID: "c2", ClaimA: Claim{DocID: "B"}, ClaimB: Claim{DocID: "C"}},
		{ID: "c3", ClaimA: Claim{DocID: "C"}, ClaimB: Claim{DocID: "D"}},
		{ID: "c4", ClaimA: Claim{DocID: "D"}, ClaimB: Claim{DocID: "E"}},
		{ID: "c5", ClaimA: Claim{DocID: "E"}, ClaimB: Claim{DocID: "F"}},
		{ID: "c6", ClaimA: Claim{DocID: "F"}, ClaimB: Claim{DocID: "G"}},
	}
	chains := DetectChains(contradictions)
	if len(chains) != 1 {
		t.Fatalf("expected 1 chain, got %d", len(chains))
	}
	if len(chains[0].ContradictionIDs) > maxChainDepth {
		t.Errorf("expected chain capped at %d edges, got %d", maxChainDepth, len(chains[0].ContradictionIDs))
	}
}

func TestDetectChainsNoEdgesYieldsNoChains(t *testing.T) {
	chains := DetectChains(nil)
	if len(chains) != 0 {
		t.Errorf("expected no chains for empty input, got %d", len(chains))
	}
}
