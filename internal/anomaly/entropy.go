// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

package anomaly

import (
	"context"
	"math"
	"os"

	"github.com/mantisfury/arkham-core/internal/classify"
)

// HiddenContentDetector scans raw file bytes for entropy-based evidence
// of encryption/steganography, LSB-channel statistical anomalies in
// images, and mime/extension mismatches.
type HiddenContentDetector struct {
	EntropyChunkSize       int
	EntropyThresholdSuspic float64
	EntropyThresholdHigh   float64
	ChiSquareThreshold     float64
	LSBSampleSize          int
	MaxFileSizeMB          int
}

func NewHiddenContentDetector() *HiddenContentDetector {
	return &HiddenContentDetector{
		EntropyChunkSize:       4096,
		EntropyThresholdSuspic: 7.2,
		EntropyThresholdHigh:   7.8,
		ChiSquareThreshold:     0.05,
		LSBSampleSize:          10000,
		MaxFileSizeMB:          200,
	}
}

func (d *HiddenContentDetector) Detect(ctx context.Context, doc Document) ([]Anomaly, error) {
	if doc.FilePath == "" {
		return nil, nil
	}
	info, err := os.Stat(doc.FilePath)
	if err != nil {
		return nil, nil
	}
	if d.MaxFileSizeMB > 0 && info.Size() > int64(d.MaxFileSizeMB)*1024*1024 {
		return nil, nil
	}

	data, err := os.ReadFile(doc.FilePath)
	if err != nil {
		return nil, nil
	}

	var anomalies []Anomaly

	if a, ok := d.detectEntropy(doc, data); ok {
		anomalies = append(anomalies, a)
	}
	if a, ok := d.detectLSB(doc, data); ok {
		anomalies = append(anomalies, a)
	}
	if a, ok := d.detectFileMismatch(doc); ok {
		anomalies = append(anomalies, a)
	}

	return anomalies, nil
}

// detectEntropy computes Shannon entropy over the whole file and over
// sliding fixed-size chunks, flagging when any region crosses the
// suspicious or high threshold.
func (d *HiddenContentDetector) detectEntropy(doc Document, data []byte) (Anomaly, bool) {
	whole := shannonEntropy(data)

	maxChunkEntropy := whole
	suspiciousChunks := 0
	for start := 0; start < len(data); start += d.EntropyChunkSize {
		end := start + d.EntropyChunkSize
		if end > len(data) {
			end = len(data)
		}
		e := shannonEntropy(data[start:end])
		if e > maxChunkEntropy {
			maxChunkEntropy = e
		}
		if e >= d.EntropyThresholdSuspic {
			suspiciousChunks++
		}
	}

	if maxChunkEntropy < d.EntropyThresholdSuspic {
		return Anomaly{}, false
	}

	severity := SeverityMedium
	anomalyType := TypeHiddenContent
	if maxChunkEntropy >= d.EntropyThresholdHigh {
		severity = SeverityHigh
		anomalyType = TypeHighEntropy
	}

	return Anomaly{
		DocID: doc.DocID, Type: anomalyType, Severity: severity,
		Score: maxChunkEntropy, Confidence: 0.7, Status: StatusDetected,
		Explanation: "file contains high-entropy regions consistent with encryption or steganography",
		Details: map[string]interface{}{
			"whole_file_entropy": whole,
			"max_chunk_entropy":  maxChunkEntropy,
			"suspicious_chunks":  suspiciousChunks,
		},
	}, true
}

// shannonEntropy computes the byte-level Shannon entropy of data, in
// bits per byte (max 8.0 for fully uniform random bytes).
func shannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	entropy := 0.0
	n := float64(len(data))
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// detectLSB extracts least-significant bits from raw pixel-channel
// bytes and chi-square tests them against a uniform 50/50 expectation;
// a near-0/near-1 bit_ratio is normal image noise, but a ratio close to
// 0.5 with a high p-value suggests deliberately embedded data.
func (d *HiddenContentDetector) detectLSB(doc Document, data []byte) (Anomaly, bool) {
	if !isImageMime(doc.MimeType) {
		return Anomaly{}, false
	}

	sampleSize := d.LSBSampleSize
	if sampleSize > len(data) {
		sampleSize = len(data)
	}
	if sampleSize == 0 {
		return Anomaly{}, false
	}

	ones := 0
	for i := 0; i < sampleSize; i++ {
		ones += int(data[i] & 1)
	}
	bitRatio := float64(ones) / float64(sampleSize)

	expected := float64(sampleSize) / 2
	observedOnes := float64(ones)
	observedZeros := float64(sampleSize - ones)
	chiSquare := math.Pow(observedOnes-expected, 2)/expected + math.Pow(observedZeros-expected, 2)/expected
	pValue := chiSquarePValueApprox(chiSquare)

	if pValue > d.ChiSquareThreshold && bitRatio >= 0.48 && bitRatio <= 0.52 {
		return Anomaly{
			DocID: doc.DocID, Type: TypeHiddenContent, Severity: SeverityHigh,
			Score: pValue, Confidence: 0.65, Status: StatusDetected,
			Explanation: "image least-significant bits are statistically consistent with embedded data",
			Details: map[string]interface{}{
				"bit_ratio": bitRatio, "chi_square": chiSquare, "p_value": pValue, "sample_size": sampleSize,
			},
		}, true
	}
	return Anomaly{}, false
}

// chiSquarePValueApprox approximates the upper-tail p-value for a
// chi-square statistic with 1 degree of freedom, using the relationship
// to the normal survival function (sqrt(chi2) ~ |Z|).
func chiSquarePValueApprox(chiSquare float64) float64 {
	z := math.Sqrt(chiSquare)
	return 2 * (1 - normalCDF(z))
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

func isImageMime(mimeType string) bool {
	return len(mimeType) >= 6 && mimeType[:6] == "image/"
}

// detectFileMismatch compares the claimed extension-derived mime type
// against the content-sniffed one (classify.Classify), flagging when
// they disagree on category.
func (d *HiddenContentDetector) detectFileMismatch(doc Document) (Anomaly, bool) {
	info, err := classify.Classify(doc.FilePath)
	if err != nil {
		return Anomaly{}, false
	}
	if info.ExtensionFidelity {
		return Anomaly{}, false
	}
	return Anomaly{
		DocID: doc.DocID, Type: TypeFileMismatch, Severity: SeverityMedium,
		Score: 1.0, Confidence: 0.75, Status: StatusDetected,
		Explanation: "claimed file extension does not match detected content type",
		Details: map[string]interface{}{
			"claimed_extension": doc.Extension,
			"detected_mime":     info.MimeType,
		},
	}, true
}
