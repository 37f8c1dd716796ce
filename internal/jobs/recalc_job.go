// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package jobs holds worker.Handler implementations for background
// maintenance jobs that do not belong to a document's ingest worker
// route. Grounded on the teacher's internal/jobs/recalc_job.go
// (job-type-constant + payload-struct + handler registration pattern),
// retargeted from its issue-priority domain to corpus-statistics
// recalculation for internal/anomaly's Statistical detector.
package jobs

import (
	"context"
	"encoding/json"
	"math"

	"github.com/mantisfury/arkham-core/internal/anomaly"
	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/database"
	"github.com/mantisfury/arkham-core/internal/documents"
	"github.com/mantisfury/arkham-core/internal/logger"
	"github.com/mantisfury/arkham-core/internal/queue"
)

// JobTypeRecalcCorpusStats is the queue pool/job-type name for the
// corpus-statistics recalculation job.
const JobTypeRecalcCorpusStats = "recalc_corpus_stats"

// RecalcCorpusStatsPayload carries no caller-provided parameters today;
// the job always recomputes over the full processed-document corpus.
// Kept as a struct (rather than an empty payload) so the queue.Record
// payload shape stays consistent with every other job type.
type RecalcCorpusStatsPayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

const corpusStatsMetadataKey = "anomaly_corpus_stats"

// CorpusStatsRecalculator computes fresh internal/anomaly.CorpusStats
// across every processed document and persists them for the next
// detection run to load.
type CorpusStatsRecalculator struct {
	Documents *documents.SQLStore
	Meta      *database.SystemMetadataStore
}

// NewCorpusStatsHandler adapts a CorpusStatsRecalculator into a
// worker.Handler, registrable on a "recalc_corpus_stats" worker.Pool.
func NewCorpusStatsHandler(r *CorpusStatsRecalculator) func(ctx context.Context, rec *queue.Record) (map[string]interface{}, error) {
	return func(ctx context.Context, rec *queue.Record) (map[string]interface{}, error) {
		stats, docCount, err := r.Recalculate(ctx)
		if err != nil {
			return nil, err
		}
		logger.Printf("jobs: recalculated corpus stats over %d documents", docCount)
		return map[string]interface{}{"documents_scanned": docCount, "metrics": len(stats)}, nil
	}
}

// Recalculate walks every processed document's pages, derives
// per-metric text statistics, folds them into corpus-wide (mean, std),
// and persists the result as JSON under corpusStatsMetadataKey so it
// survives a restart.
func (r *CorpusStatsRecalculator) Recalculate(ctx context.Context) (map[string]anomaly.CorpusStats, int, error) {
	docs, err := r.Documents.ListProcessed(ctx)
	if err != nil {
		return nil, 0, apperr.DependencyUnavailable(err, "list processed documents")
	}

	samples := map[string][]float64{}
	for _, doc := range docs {
		pages, err := r.Documents.Pages(ctx, doc.DocumentID)
		if err != nil {
			logger.Warnf("jobs: skipping %s, failed to load pages: %v", doc.DocumentID, err)
			continue
		}
		var text string
		for _, p := range pages {
			text += p.Content + "\n"
		}
		m := anomaly.ComputeTextMetrics(text)
		samples["char_count"] = append(samples["char_count"], m.CharCount)
		samples["word_count"] = append(samples["word_count"], m.WordCount)
		samples["avg_word_length"] = append(samples["avg_word_length"], m.AvgWordLength)
		samples["avg_sentence_length"] = append(samples["avg_sentence_length"], m.AvgSentenceLength)
	}

	out := make(map[string]anomaly.CorpusStats, len(samples))
	for metric, values := range samples {
		out[metric] = meanStd(values)
	}

	blob, err := json.Marshal(out)
	if err != nil {
		return nil, len(docs), err
	}
	if r.Meta != nil {
		if err := r.Meta.Set(corpusStatsMetadataKey, string(blob)); err != nil {
			return nil, len(docs), apperr.DependencyUnavailable(err, "persist corpus stats")
		}
	}
	return out, len(docs), nil
}

// LoadCorpusStats restores the last persisted corpus statistics, for
// use at Frame startup before the first recalculation job has run.
func LoadCorpusStats(meta *database.SystemMetadataStore) (map[string]anomaly.CorpusStats, error) {
	raw, err := meta.Get(corpusStatsMetadataKey)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return map[string]anomaly.CorpusStats{}, nil
	}
	var out map[string]anomaly.CorpusStats
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func meanStd(values []float64) anomaly.CorpusStats {
	if len(values) == 0 {
		return anomaly.CorpusStats{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return anomaly.CorpusStats{Mean: mean, Std: math.Sqrt(variance)}
}
