// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package contradiction

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// VerifyResult is a verifier's judgment on one candidate pair.
type VerifyResult struct {
	Contradicts bool
	Type        ContradictionType
	Severity    Severity
	Explanation string
	Confidence  float64
}

// Verifier decides whether a candidate pair is a genuine contradiction.
type Verifier interface {
	Verify(ctx context.Context, pair Pair) (*VerifyResult, error)
}

var negationWords = []string{"not", "no", "never", "n't"}

func containsNegation(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range negationWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

var strongDisagreementMarkers = []string{"not", "never", "denied", "refuted"}

// countDisagreementMarkers counts strong-disagreement tokens across
// both claim texts, feeding the severity ladder in stage 4.
func countDisagreementMarkers(a, b string) int {
	combined := strings.ToLower(a + " " + b)
	count := 0
	for _, m := range strongDisagreementMarkers {
		count += strings.Count(combined, m)
	}
	return count
}

var numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// HeuristicVerifier is the non-LLM verification path: negation
// contrast -> DIRECT; differing numbers with otherwise similar
// surrounding text -> NUMERIC; else a moderate-similarity pair is a
// low-severity CONTEXTUAL match.
type HeuristicVerifier struct{}

func (HeuristicVerifier) Verify(ctx context.Context, pair Pair) (*VerifyResult, error) {
	a, b := pair.A.Text, pair.B.Text

	if hasNegationContrast(a, b) {
		return &VerifyResult{
			Contradicts: true, Type: TypeDirect,
			Explanation: "claims disagree via negation",
			Confidence:  0.75,
		}, nil
	}

	numsA := numberPattern.FindAllString(a, -1)
	numsB := numberPattern.FindAllString(b, -1)
	if len(numsA) > 0 && len(numsB) > 0 && differingNumbers(numsA, numsB) && pair.Similarity > 0.7 {
		return &VerifyResult{
			Contradicts: true, Type: TypeNumeric,
			Explanation: "claims cite different numeric values for the same context",
			Confidence:  0.7,
		}, nil
	}

	if pair.Similarity > 0.6 && pair.Similarity <= 0.9 {
		return &VerifyResult{
			Contradicts: true, Type: TypeContextual,
			Explanation: "claims are contextually related but not fully consistent",
			Confidence:  0.5,
		}, nil
	}

	return &VerifyResult{Contradicts: false}, nil
}

func differingNumbers(a, b []string) bool {
	setA := make(map[string]bool, len(a))
	for _, n := range a {
		setA[normalizeNumber(n)] = true
	}
	for _, n := range b {
		if !setA[normalizeNumber(n)] {
			return true
		}
	}
	setB := make(map[string]bool, len(b))
	for _, n := range b {
		setB[normalizeNumber(n)] = true
	}
	for _, n := range a {
		if !setB[normalizeNumber(n)] {
			return true
		}
	}
	return false
}

func normalizeNumber(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// AssignSeverity applies a severity ladder: >=2
// disagreement markers or a DIRECT type -> HIGH; TEMPORAL/NUMERIC or
// confidence > 0.8 -> MEDIUM; else LOW.
func AssignSeverity(claimA, claimB string, contradictionType ContradictionType, confidence float64) Severity {
	markers := countDisagreementMarkers(claimA, claimB)
	if markers >= 2 || contradictionType == TypeDirect {
		return SeverityHigh
	}
	if contradictionType == TypeTemporal || contradictionType == TypeNumeric || confidence > 0.8 {
		return SeverityMedium
	}
	return SeverityLow
}
