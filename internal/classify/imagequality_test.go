package classify

import "testing"

func TestClassifyIssueCounts(t *testing.T) {
	cases := []struct {
		name  string
		score QualityScore
		want  Classification
	}{
		{"clean", QualityScore{DPI: 300, SkewDeg: 0, Contrast: 0.8, Layout: LayoutSimple}, ClassClean},
		{"one issue simple layout is fixable", QualityScore{DPI: 100, SkewDeg: 0, Contrast: 0.8, Layout: LayoutSimple}, ClassFixable},
		{"two issues table layout is fixable", QualityScore{DPI: 100, SkewDeg: 5, Contrast: 0.8, Layout: LayoutTable}, ClassFixable},
		{"messy by issue count regardless of layout", QualityScore{DPI: 100, SkewDeg: 5, Contrast: 0.1, HasNoise: true, Layout: LayoutSimple}, ClassMessy},
		{"one issue complex layout is messy", QualityScore{DPI: 100, SkewDeg: 0, Contrast: 0.8, Layout: LayoutComplex}, ClassMessy},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.score.Classify(); got != c.want {
				t.Errorf("Classify() = %s, want %s", got, c.want)
			}
		})
	}
}

func TestGetOCRRouteScenario1Clean(t *testing.T) {
	score := QualityScore{DPI: 300, Contrast: 0.8, Layout: LayoutSimple}
	route := GetOCRRoute(score, OCRAuto)
	if len(route) != 1 || route[0] != "gpu-paddle" {
		t.Fatalf("expected [gpu-paddle] for clean image, got %v", route)
	}
}

func TestGetOCRRouteScenario2MessyComplex(t *testing.T) {
	score := QualityScore{DPI: 120, SkewDeg: 5, Contrast: 0.8, Layout: LayoutComplex}
	route := GetOCRRoute(score, OCRAuto)
	want := []string{"cpu-image", "gpu-qwen"}
	if len(route) != len(want) || route[0] != want[0] || route[1] != want[1] {
		t.Fatalf("expected %v for messy+complex image, got %v", want, route)
	}
}

func TestGetOCRRouteQwenOnlyIgnoresQuality(t *testing.T) {
	route := GetOCRRoute(QualityScore{DPI: 300, Contrast: 0.9, Layout: LayoutSimple}, OCRQwenOnly)
	want := []string{"cpu-image", "gpu-qwen"}
	if len(route) != 2 || route[0] != want[0] || route[1] != want[1] {
		t.Fatalf("expected qwen_only route regardless of quality, got %v", route)
	}
}

func TestGetOCRRoutePaddleOnlyCleanSkipsPreprocess(t *testing.T) {
	route := GetOCRRoute(QualityScore{DPI: 300, Contrast: 0.9, Layout: LayoutSimple}, OCRPaddleOnly)
	if len(route) != 1 || route[0] != "gpu-paddle" {
		t.Fatalf("expected [gpu-paddle] for clean+paddle_only, got %v", route)
	}
}
