// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package classify

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
)

// Thresholds mirror the original classifier's constants (classifiers/image_quality.py).
const (
	MinDPI         = 150.0
	MaxSkewDegrees = 2.0
	MinContrast    = 0.4
	NoiseThreshold = 500.0 // Laplacian variance above which an image counts as noisy
)

// Layout buckets, by edge-density.
type Layout string

const (
	LayoutSimple  Layout = "simple"
	LayoutTable   Layout = "table"
	LayoutMixed   Layout = "mixed"
	LayoutComplex Layout = "complex"
)

// Classification is the derived label driving OCR route selection.
type Classification string

const (
	ClassClean   Classification = "CLEAN"
	ClassFixable Classification = "FIXABLE"
	ClassMessy   Classification = "MESSY"
)

// QualityScore is the output of the image quality classifier.
type QualityScore struct {
	DPI         float64
	SkewDeg     float64
	Contrast    float64
	IsGrayscale bool
	HasNoise    bool
	Layout      Layout
}

// Classify derives CLEAN/FIXABLE/MESSY from the issue count and layout,
// per spec.md §4.5: 0 issues -> CLEAN; 1-2 issues AND layout simple/table
// -> FIXABLE; else MESSY.
func (q QualityScore) Classify() Classification {
	issues := 0
	if q.DPI < MinDPI {
		issues++
	}
	if math.Abs(q.SkewDeg) > MaxSkewDegrees {
		issues++
	}
	if q.Contrast < MinContrast {
		issues++
	}
	if q.HasNoise {
		issues++
	}

	switch {
	case issues == 0:
		return ClassClean
	case issues <= 2 && (q.Layout == LayoutSimple || q.Layout == LayoutTable):
		return ClassFixable
	default:
		return ClassMessy
	}
}

// OCRMode selects which OCR engines the dispatcher is allowed to route to.
type OCRMode string

const (
	OCRAuto       OCRMode = "auto"
	OCRPaddleOnly OCRMode = "paddle_only"
	OCRQwenOnly   OCRMode = "qwen_only"
)

// GetOCRRoute resolves the worker_route tail for an image job, ported
// directly from original_source's get_ocr_route (classifiers/image_quality.py).
func GetOCRRoute(score QualityScore, mode OCRMode) []string {
	class := score.Classify()

	switch mode {
	case OCRQwenOnly:
		return []string{"cpu-image", "gpu-qwen"}
	case OCRPaddleOnly:
		if class == ClassClean {
			return []string{"gpu-paddle"}
		}
		return []string{"cpu-image", "gpu-paddle"}
	default: // auto
		switch {
		case class == ClassClean:
			return []string{"gpu-paddle"}
		case class == ClassFixable:
			return []string{"cpu-image", "gpu-paddle"}
		case class == ClassMessy && (score.Layout == LayoutMixed || score.Layout == LayoutComplex):
			return []string{"cpu-image", "gpu-qwen"}
		default:
			return []string{"cpu-image", "gpu-paddle"}
		}
	}
}

// AnalyzeImage computes a QualityScore for the image at path. DPI falls
// back to 72 (no EXIF resolution tag reader is grounded anywhere in the
// example pack, so this mirrors the original's own EXIF-unavailable
// fallback rather than adding an ungrounded dependency). Contrast, noise,
// and layout are derived from pixel statistics, the Go equivalent of the
// original's PIL/numpy heuristics.
func AnalyzeImage(path string) (QualityScore, error) {
	f, err := os.Open(path)
	if err != nil {
		return QualityScore{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return QualityScore{}, err
	}

	gray, mean, std := grayscaleStats(img)
	contrast := std / 80.0
	if contrast > 1.0 {
		contrast = 1.0
	}

	return QualityScore{
		DPI:         72,
		SkewDeg:     estimateSkew(gray),
		Contrast:    contrast,
		IsGrayscale: isGrayscale(img),
		HasNoise:    detectNoise(gray) > NoiseThreshold,
		Layout:      assessLayout(gray, mean),
	}, nil
}

// grayscaleStats converts img to a row-major luminance grid and returns
// (grid, mean, stddev).
func grayscaleStats(img image.Image) ([][]float64, float64, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	grid := make([][]float64, h)
	var sum float64
	for y := 0; y < h; y++ {
		row := make([]float64, w)
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			row[x] = lum
			sum += lum
		}
		grid[y] = row
	}
	n := float64(w * h)
	if n == 0 {
		return grid, 0, 0
	}
	mean := sum / n
	var variance float64
	for _, row := range grid {
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
	}
	variance /= n
	return grid, mean, math.Sqrt(variance)
}

func isGrayscale(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += maxInt(1, b.Dy()/32) {
		for x := b.Min.X; x < b.Max.X; x += maxInt(1, b.Dx()/32) {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r != g || g != bl {
				return false
			}
		}
	}
	return true
}

// estimateSkew is a row-mean-variance heuristic: text rows have
// alternating high/low mean luminance; the variance of row means
// correlates with skew-induced smearing. This is a coarse proxy, not a
// Hough-transform skew estimate, matching the original's stated
// "simplified" approach.
func estimateSkew(grid [][]float64) float64 {
	if len(grid) < 2 {
		return 0
	}
	means := make([]float64, len(grid))
	for i, row := range grid {
		var s float64
		for _, v := range row {
			s += v
		}
		if len(row) > 0 {
			means[i] = s / float64(len(row))
		}
	}
	var mean, variance float64
	for _, m := range means {
		mean += m
	}
	mean /= float64(len(means))
	for _, m := range means {
		d := m - mean
		variance += d * d
	}
	variance /= float64(len(means))

	// Normalize variance into a plausible degree range; pure heuristic.
	skew := math.Sqrt(variance) / 40.0
	if skew > 10 {
		skew = 10
	}
	return skew
}

// detectNoise approximates a discrete Laplacian variance (the original's
// noise proxy): high variance of the 4-neighbor Laplacian indicates
// speckle/noise rather than smooth gradients.
func detectNoise(grid [][]float64) float64 {
	h := len(grid)
	if h < 3 {
		return 0
	}
	w := len(grid[0])
	if w < 3 {
		return 0
	}

	var values []float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := -4*grid[y][x] + grid[y-1][x] + grid[y+1][x] + grid[y][x-1] + grid[y][x+1]
			values = append(values, lap)
		}
	}
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return variance / float64(len(values))
}

// assessLayout buckets pages by edge-density, ported from the original's
// edge-ratio buckets (<0.05 simple, <0.15 table, <0.3 mixed, else complex).
func assessLayout(grid [][]float64, mean float64) Layout {
	h := len(grid)
	if h < 2 {
		return LayoutSimple
	}
	w := len(grid[0])
	var edges, total int
	threshold := mean * 0.25
	for y := 1; y < h; y++ {
		for x := 1; x < w; x++ {
			total++
			if math.Abs(grid[y][x]-grid[y][x-1]) > threshold || math.Abs(grid[y][x]-grid[y-1][x]) > threshold {
				edges++
			}
		}
	}
	if total == 0 {
		return LayoutSimple
	}
	ratio := float64(edges) / float64(total)
	switch {
	case ratio < 0.05:
		return LayoutSimple
	case ratio < 0.15:
		return LayoutTable
	case ratio < 0.3:
		return LayoutMixed
	default:
		return LayoutComplex
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
