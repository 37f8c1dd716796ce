package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/mantisfury/arkham-core/internal/classify"
	"github.com/mantisfury/arkham-core/internal/queue"
)

type memStore struct {
	jobs map[string]*IngestJob
}

func newMemStore() *memStore { return &memStore{jobs: map[string]*IngestJob{}} }

func (s *memStore) Save(ctx context.Context, job *IngestJob) error {
	s.jobs[job.JobID] = job
	return nil
}
func (s *memStore) Get(ctx context.Context, jobID string) (*IngestJob, error) {
	return s.jobs[jobID], nil
}
func (s *memStore) Update(ctx context.Context, job *IngestJob) error {
	s.jobs[job.JobID] = job
	return nil
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":           "report.pdf",
		"../../etc/passwd":     ".._.._etc_passwd",
		"":                     "unnamed",
		"a\x00b.txt":           "ab.txt",
		strings.Repeat("x", 250) + ".txt": strings.Repeat("x", 200),
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReceiveFilePlainTextRoutesToCPULight(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, newMemStore(), classify.OCRAuto)

	job, err := m.ReceiveFile(context.Background(), strings.NewReader("hello world document text"), "note.txt", queue.PriorityUser)
	if err != nil {
		t.Fatal(err)
	}
	if job.Category != classify.CategoryDocument {
		t.Fatalf("expected document category, got %s", job.Category)
	}
	if len(job.WorkerRoute) == 0 || job.WorkerRoute[0] != "cpu-light" {
		t.Fatalf("expected worker route starting with cpu-light, got %v", job.WorkerRoute)
	}
	if job.SHA256 == "" {
		t.Fatal("expected sha256 to be computed")
	}
}

func TestResolveRouteByQualityReplacesMarker(t *testing.T) {
	route := []string{"cpu-light:classify", "ROUTE_BY_QUALITY"}
	score := classify.QualityScore{DPI: 300, Contrast: 0.9, Layout: classify.LayoutSimple}
	resolved := resolveRouteByQuality(route, score, classify.OCRAuto)

	want := []string{"cpu-light:classify", "gpu-paddle"}
	if len(resolved) != len(want) {
		t.Fatalf("got %v, want %v", resolved, want)
	}
	for i := range want {
		if resolved[i] != want[i] {
			t.Fatalf("got %v, want %v", resolved, want)
		}
	}
}
