// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package anomaly

import (
	"context"
	"strings"
)

// CorpusStats holds the (mean, std) for a single metric across the
// document corpus, computed once per detection run by the caller.
type CorpusStats struct {
	Mean float64
	Std  float64
}

// TextMetrics are the per-document measurements the Statistical
// detector z-scores against the corpus.
type TextMetrics struct {
	CharCount         float64
	WordCount         float64
	AvgWordLength     float64
	AvgSentenceLength float64
}

// ComputeTextMetrics derives the four metrics from raw document text.
func ComputeTextMetrics(text string) TextMetrics {
	words := strings.Fields(text)
	wordCount := float64(len(words))

	totalWordLen := 0
	for _, w := range words {
		totalWordLen += len(w)
	}
	avgWordLen := 0.0
	if wordCount > 0 {
		avgWordLen = float64(totalWordLen) / wordCount
	}

	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	avgSentenceLen := 0.0
	if len(sentences) > 0 {
		avgSentenceLen = wordCount / float64(len(sentences))
	}

	return TextMetrics{
		CharCount:         float64(len(text)),
		WordCount:         wordCount,
		AvgWordLength:     avgWordLen,
		AvgSentenceLength: avgSentenceLen,
	}
}

// StatisticalDetector z-scores a document's text metrics against
// corpus-wide statistics, flagging outliers.
type StatisticalDetector struct {
	ZThreshold float64
	Corpus     map[string]CorpusStats // keyed by metric name
}

func NewStatisticalDetector(corpus map[string]CorpusStats, zThreshold float64) *StatisticalDetector {
	if zThreshold <= 0 {
		zThreshold = 3.0
	}
	return &StatisticalDetector{ZThreshold: zThreshold, Corpus: corpus}
}

func (d *StatisticalDetector) Detect(ctx context.Context, doc Document) ([]Anomaly, error) {
	metrics := ComputeTextMetrics(doc.Text)
	values := map[string]float64{
		"char_count":          metrics.CharCount,
		"word_count":          metrics.WordCount,
		"avg_word_length":     metrics.AvgWordLength,
		"avg_sentence_length": metrics.AvgSentenceLength,
	}

	var anomalies []Anomaly
	for metric, value := range values {
		stats, ok := d.Corpus[metric]
		if !ok || stats.Std == 0 {
			continue
		}
		z := zScore(value, stats.Mean, stats.Std)
		if abs(z) <= d.ZThreshold {
			continue
		}
		anomalies = append(anomalies, Anomaly{
			DocID: doc.DocID, Type: TypeStatistical,
			Severity:   severityFromZ(abs(z), d.ZThreshold),
			Score:      abs(z),
			Confidence: confidenceFromZ(abs(z), d.ZThreshold),
			Status:     StatusDetected,
			Explanation: metric + " is a statistical outlier relative to the corpus",
			Details: map[string]interface{}{
				"metric": metric, "value": value, "z_score": z,
				"corpus_mean": stats.Mean, "corpus_std": stats.Std,
			},
		})
	}
	return anomalies, nil
}

// confidenceFromZ maps z-score magnitude to a [0,1] confidence,
// saturating at 0.95 so no detector claims absolute certainty.
func confidenceFromZ(absZ, threshold float64) float64 {
	if threshold == 0 {
		return 0.5
	}
	c := 0.5 + 0.15*(absZ/threshold)
	if c > 0.95 {
		c = 0.95
	}
	return c
}

// MetadataDetector z-scores file_size against the corpus.
type MetadataDetector struct {
	ZThreshold   float64
	FileSizeMean float64
	FileSizeStd  float64
}

func NewMetadataDetector(mean, std, zThreshold float64) *MetadataDetector {
	if zThreshold <= 0 {
		zThreshold = 3.0
	}
	return &MetadataDetector{ZThreshold: zThreshold, FileSizeMean: mean, FileSizeStd: std}
}

func (d *MetadataDetector) Detect(ctx context.Context, doc Document) ([]Anomaly, error) {
	if d.FileSizeStd == 0 {
		return nil, nil
	}
	z := zScore(float64(doc.FileSize), d.FileSizeMean, d.FileSizeStd)
	if abs(z) <= d.ZThreshold {
		return nil, nil
	}
	return []Anomaly{{
		DocID: doc.DocID, Type: TypeMetadata,
		Severity:    severityFromZ(abs(z), d.ZThreshold),
		Score:       abs(z),
		Confidence:  confidenceFromZ(abs(z), d.ZThreshold),
		Status:      StatusDetected,
		Explanation: "file_size is a statistical outlier relative to the corpus",
		Details: map[string]interface{}{
			"file_size": doc.FileSize, "z_score": z,
			"corpus_mean": d.FileSizeMean, "corpus_std": d.FileSizeStd,
		},
	}}, nil
}
