// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package anomaly

import (
	"context"
	"math"
)

// ContentVectorDetector flags documents whose embedding sits unusually
// far from every other document in the corpus — an outlier in meaning,
// not just surface statistics.
type ContentVectorDetector struct {
	CorpusEmbeddings  []Embedding
	ZThreshold        float64
	DistanceThreshold float64 // absolute cosine-distance threshold, checked in addition to z-score
}

// Embedding pairs a corpus document's ID with its vector, so the
// detector can skip self-comparison when doc.DocID matches.
type Embedding struct {
	DocID  string
	Vector []float32
}

func NewContentVectorDetector(corpus []Embedding, zThreshold, distanceThreshold float64) *ContentVectorDetector {
	if zThreshold <= 0 {
		zThreshold = 3.0
	}
	return &ContentVectorDetector{CorpusEmbeddings: corpus, ZThreshold: zThreshold, DistanceThreshold: distanceThreshold}
}

func (d *ContentVectorDetector) Detect(ctx context.Context, doc Document) ([]Anomaly, error) {
	if len(doc.Embedding) == 0 || len(d.CorpusEmbeddings) == 0 {
		return nil, nil
	}

	minDistance := math.MaxFloat64
	distances := make([]float64, 0, len(d.CorpusEmbeddings))
	for _, e := range d.CorpusEmbeddings {
		if e.DocID == doc.DocID {
			continue
		}
		dist := 1.0 - cosineSimilarity(doc.Embedding, e.Vector)
		distances = append(distances, dist)
		if dist < minDistance {
			minDistance = dist
		}
	}
	if len(distances) == 0 {
		return nil, nil
	}

	// Baseline: each corpus document's distance to its own nearest neighbour.
	var nearest []float64
	for i, a := range d.CorpusEmbeddings {
		best := math.MaxFloat64
		for j, b := range d.CorpusEmbeddings {
			if i != j && a.DocID != doc.DocID && b.DocID != doc.DocID {
				best = math.Min(best, 1.0-cosineSimilarity(a.Vector, b.Vector))
			}
		}
		if best != math.MaxFloat64 {
			nearest = append(nearest, best)
		}
	}
	mean, std := 0.0, 0.0
	if len(nearest) > 0 {
		mean, std = meanStdFloat(nearest)
	}
	z := zScore(minDistance, mean, std)

	exceedsZ := std > 0 && z > d.ZThreshold
	exceedsAbsolute := d.DistanceThreshold > 0 && minDistance > d.DistanceThreshold
	if !exceedsZ && !exceedsAbsolute {
		return nil, nil
	}

	severity := SeverityLow
	if exceedsZ {
		severity = severityFromZ(abs(z), d.ZThreshold)
	} else if exceedsAbsolute {
		severity = SeverityMedium
	}

	return []Anomaly{{
		DocID: doc.DocID, Type: TypeContent,
		Severity:    severity,
		Score:       minDistance,
		Confidence:  confidenceFromZ(abs(z), d.ZThreshold),
		Status:      StatusDetected,
		Explanation: "document content is semantically isolated from the rest of the corpus",
		Details: map[string]interface{}{
			"min_distance": minDistance, "z_score": z,
			"corpus_mean_distance": mean, "corpus_std_distance": std,
		},
	}}, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func meanStdFloat(xs []float64) (mean, std float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		d := x - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(xs)))
	return mean, std
}
