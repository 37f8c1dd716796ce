// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package anomaly

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

var (
	moneyPattern = regexp.MustCompile(`\$[\d,]+\.?\d*`)
	datePattern  = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`)
	// namePattern approximates "simple capitalized bigrams": two
	// consecutive capitalized words, e.g. a person's first/last name.
	namePattern = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)
)

var sensitiveKeywords = []string{
	"confidential", "classified", "top secret", "ssn", "social security",
	"password", "credit card", "bank account", "routing number",
}

// RedFlagDetector scans document text for fixed lexical markers:
// money/date/name pattern density and a sensitive-keyword hit list.
type RedFlagDetector struct {
	MoneyThreshold int
	DateThreshold  int
	NameThreshold  int
}

func NewRedFlagDetector() *RedFlagDetector {
	return &RedFlagDetector{MoneyThreshold: 10, DateThreshold: 15, NameThreshold: 20}
}

func (d *RedFlagDetector) Detect(ctx context.Context, doc Document) ([]Anomaly, error) {
	if doc.Text == "" {
		return nil, nil
	}

	var anomalies []Anomaly

	moneyMatches := moneyPattern.FindAllString(doc.Text, -1)
	if len(moneyMatches) > d.MoneyThreshold {
		anomalies = append(anomalies, Anomaly{
			DocID: doc.DocID, Type: TypeRedFlag, Severity: SeverityHigh,
			Score: float64(len(moneyMatches)), Confidence: 0.7, Status: StatusDetected,
			Explanation: "unusually high count of monetary amounts",
			Details:     map[string]interface{}{"category": "money_pattern", "count": len(moneyMatches)},
		})
	}

	dateMatches := datePattern.FindAllString(doc.Text, -1)
	if len(dateMatches) > d.DateThreshold {
		anomalies = append(anomalies, Anomaly{
			DocID: doc.DocID, Type: TypeRedFlag, Severity: SeverityMedium,
			Score: float64(len(dateMatches)), Confidence: 0.6, Status: StatusDetected,
			Explanation: "unusually high count of date references",
			Details:     map[string]interface{}{"category": "date_pattern", "count": len(dateMatches)},
		})
	}

	names := uniqueStrings(namePattern.FindAllString(doc.Text, -1))
	if len(names) > d.NameThreshold {
		anomalies = append(anomalies, Anomaly{
			DocID: doc.DocID, Type: TypeRedFlag, Severity: SeverityMedium,
			Score: float64(len(names)), Confidence: 0.6, Status: StatusDetected,
			Explanation: "unusually high count of distinct named persons",
			Details:     map[string]interface{}{"category": "name_pattern", "unique_count": len(names)},
		})
	}

	if a, ok := detectStructuring(doc, moneyMatches); ok {
		anomalies = append(anomalies, a)
	}

	lower := strings.ToLower(doc.Text)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			anomalies = append(anomalies, Anomaly{
				DocID: doc.DocID, Type: TypeRedFlag, Severity: SeverityCritical,
				Score: 1.0, Confidence: 0.9, Status: StatusDetected,
				Explanation: "sensitive keyword present: " + kw,
				Details:     map[string]interface{}{"category": "sensitive_keyword", "keyword": kw},
			})
		}
	}

	return anomalies, nil
}

// structuringMin/Max bound the "just under the reporting threshold"
// window banks flag as potential structuring (smurfing).
const (
	structuringMin        = 9000.0
	structuringMax        = 10000.0
	structuringMinCount   = 3
	structuringConfidence = 0.85
)

// detectStructuring flags transaction amounts clustered just below the
// $10,000 reporting threshold, a pattern consistent with structuring
// deposits to avoid currency transaction reports.
func detectStructuring(doc Document, moneyMatches []string) (Anomaly, bool) {
	var suspicious []float64
	total := 0.0
	for _, m := range moneyMatches {
		cleaned := strings.NewReplacer("$", "", ",", "").Replace(m)
		amount, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			continue
		}
		total += amount
		if amount >= structuringMin && amount < structuringMax {
			suspicious = append(suspicious, amount)
		}
	}
	if len(suspicious) < structuringMinCount {
		return Anomaly{}, false
	}

	suspiciousTotal := 0.0
	for _, a := range suspicious {
		suspiciousTotal += a
	}

	return Anomaly{
		DocID: doc.DocID, Type: TypeRedFlag, Severity: SeverityCritical,
		Score: float64(len(suspicious)), Confidence: structuringConfidence, Status: StatusDetected,
		Explanation: "multiple transactions just under the reporting threshold",
		Details: map[string]interface{}{
			"category":          "structuring",
			"transaction_count": len(suspicious),
			"total":             suspiciousTotal,
		},
	}, true
}

func uniqueStrings(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}
