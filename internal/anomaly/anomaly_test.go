package anomaly

import (
	"context"
	"strings"
	"testing"
)

func TestRedFlagDetectorFlagsSensitiveKeyword(t *testing.T) {
	d := NewRedFlagDetector()
	doc := Document{DocID: "d1", Text: "this memo is marked confidential and must not circulate"}
	got, err := d.Detect(context.Background(), doc)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	found := false
	for _, a := range got {
		if a.Details["category"] == "sensitive_keyword" {
			found = true
			if a.Severity != SeverityCritical {
				t.Fatalf("expected critical severity, got %v", a.Severity)
			}
		}
	}
	if !found {
		t.Fatal("expected sensitive keyword anomaly")
	}
}

func TestRedFlagDetectorFlagsMoneyPatternDensity(t *testing.T) {
	d := NewRedFlagDetector()
	var sb strings.Builder
	for i := 0; i < 12; i++ {
		sb.WriteString("$100.00 ")
	}
	got, err := d.Detect(context.Background(), Document{DocID: "d1", Text: sb.String()})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	found := false
	for _, a := range got {
		if a.Details["category"] == "money_pattern" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected money pattern anomaly above threshold")
	}
}

func TestRedFlagDetectorDetectsStructuring(t *testing.T) {
	d := NewRedFlagDetector()
	text := "Transactions: $9,100 $9,500 $9,800 $9,950 were deposited over four days."
	got, err := d.Detect(context.Background(), Document{DocID: "d1", Text: text})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var structuring *Anomaly
	for i := range got {
		if got[i].Details["category"] == "structuring" {
			structuring = &got[i]
		}
	}
	if structuring == nil {
		t.Fatal("expected a structuring anomaly")
	}
	if structuring.Severity != SeverityCritical {
		t.Fatalf("expected critical severity, got %v", structuring.Severity)
	}
	if structuring.Confidence != 0.85 {
		t.Fatalf("expected confidence 0.85, got %v", structuring.Confidence)
	}
	if structuring.Details["transaction_count"] != 4 {
		t.Fatalf("expected transaction_count 4, got %v", structuring.Details["transaction_count"])
	}
}

func TestRedFlagDetectorNoFlagsOnCleanText(t *testing.T) {
	d := NewRedFlagDetector()
	got, err := d.Detect(context.Background(), Document{DocID: "d1", Text: "a short, unremarkable memo about lunch plans"})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no anomalies, got %+v", got)
	}
}

func TestStatisticalDetectorFlagsOutlier(t *testing.T) {
	corpus := map[string]CorpusStats{
		"char_count": {Mean: 1000, Std: 100},
	}
	d := NewStatisticalDetector(corpus, 3.0)
	longText := strings.Repeat("x", 2000)
	got, err := d.Detect(context.Background(), Document{DocID: "d1", Text: longText})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected at least one statistical anomaly")
	}
}

func TestMetadataDetectorFlagsFileSizeOutlier(t *testing.T) {
	d := NewMetadataDetector(1_000_000, 100_000, 3.0)
	got, err := d.Detect(context.Background(), Document{DocID: "d1", FileSize: 5_000_000})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 anomaly, got %d", len(got))
	}
	if got[0].Severity != SeverityCritical {
		t.Fatalf("expected critical severity for 40-sigma outlier, got %v", got[0].Severity)
	}
}

func TestMetadataDetectorNoFlagWithinRange(t *testing.T) {
	d := NewMetadataDetector(1_000_000, 100_000, 3.0)
	got, err := d.Detect(context.Background(), Document{DocID: "d1", FileSize: 1_050_000})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no anomalies, got %+v", got)
	}
}

func TestContentVectorDetectorFlagsIsolatedEmbedding(t *testing.T) {
	corpus := []Embedding{
		{DocID: "a", Vector: []float32{1, 0}},
		{DocID: "b", Vector: []float32{0.95, 0.05}},
		{DocID: "c", Vector: []float32{0.9, 0.1}},
	}
	d := NewContentVectorDetector(corpus, 3.0, 0.9)
	got, err := d.Detect(context.Background(), Document{DocID: "outlier", Embedding: []float32{0, 1}})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 anomaly for orthogonal embedding, got %d", len(got))
	}
}

func TestContentVectorDetectorNoFlagWhenEmpty(t *testing.T) {
	d := NewContentVectorDetector(nil, 3.0, 0.9)
	got, err := d.Detect(context.Background(), Document{DocID: "d1", Embedding: []float32{1, 0}})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no anomalies with empty corpus, got %+v", got)
	}
}

func TestShannonEntropyUniformBytesIsHigh(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	e := shannonEntropy(data)
	if e < 7.9 {
		t.Fatalf("expected near-maximal entropy for uniform bytes, got %v", e)
	}
}

func TestShannonEntropyRepeatedByteIsZero(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = 'a'
	}
	e := shannonEntropy(data)
	if e != 0 {
		t.Fatalf("expected zero entropy for constant bytes, got %v", e)
	}
}

func TestRunDeduplicatesAcrossDetectors(t *testing.T) {
	dup := &dupDetector{}
	got, err := Run(context.Background(), Document{DocID: "d1"}, []Detector{dup, dup})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 deduped anomaly, got %d", len(got))
	}
}

type dupDetector struct{}

func (dupDetector) Detect(ctx context.Context, doc Document) ([]Anomaly, error) {
	return []Anomaly{{
		DocID: doc.DocID, Type: TypeRedFlag, Status: StatusDetected,
		Details: map[string]interface{}{"category": "x"},
	}}, nil
}
