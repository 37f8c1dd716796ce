package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/mantisfury/arkham-core/internal/bus"
	"github.com/mantisfury/arkham-core/internal/ingest"
	"github.com/mantisfury/arkham-core/internal/queue"
)

// fakeQueue is a minimal in-memory queue.Service double, enough to observe
// what the dispatcher enqueues without requiring a Redis backend.
type fakeQueue struct {
	enqueued []enqueueCall
}

type enqueueCall struct {
	pool    string
	jobID   string
	payload map[string]interface{}
}

func (f *fakeQueue) Enqueue(ctx context.Context, pool, jobID string, payload map[string]interface{}, priority queue.Priority, maxRetries int) error {
	f.enqueued = append(f.enqueued, enqueueCall{pool, jobID, payload})
	return nil
}
func (f *fakeQueue) Lease(ctx context.Context, pool, workerID string, leaseTTL time.Duration) (*queue.Record, error) {
	return nil, nil
}
func (f *fakeQueue) Heartbeat(ctx context.Context, jobID string, leaseTTL time.Duration) error {
	return nil
}
func (f *fakeQueue) Complete(ctx context.Context, jobID string, result map[string]interface{}) error {
	return nil
}
func (f *fakeQueue) Fail(ctx context.Context, jobID string, cause error) error { return nil }
func (f *fakeQueue) Get(ctx context.Context, jobID string) (*queue.Record, error) {
	return nil, nil
}
func (f *fakeQueue) Depth(ctx context.Context, pool string) (int64, error) { return 0, nil }

type fakeStore struct {
	jobs map[string]*ingest.IngestJob
}

func newFakeStore() *fakeStore { return &fakeStore{jobs: map[string]*ingest.IngestJob{}} }

func (s *fakeStore) Save(ctx context.Context, job *ingest.IngestJob) error {
	s.jobs[job.JobID] = job
	return nil
}
func (s *fakeStore) Get(ctx context.Context, jobID string) (*ingest.IngestJob, error) {
	return s.jobs[jobID], nil
}
func (s *fakeStore) Update(ctx context.Context, job *ingest.IngestJob) error {
	s.jobs[job.JobID] = job
	return nil
}

type fakeRegistrar struct {
	calls int
}

func (r *fakeRegistrar) RegisterFromJob(ctx context.Context, job *ingest.IngestJob, result map[string]interface{}) (string, error) {
	r.calls++
	return "doc-" + job.JobID, nil
}

func newTestJob(jobID string, route []string) *ingest.IngestJob {
	return &ingest.IngestJob{
		JobID:        jobID,
		OriginalName: "file.txt",
		Path:         "/storage/" + jobID,
		WorkerRoute:  route,
		MaxRetries:   2,
		Status:       ingest.StatusPending,
	}
}

func TestDispatchEnqueuesFirstRouteStep(t *testing.T) {
	q := &fakeQueue{}
	store := newFakeStore()
	b := bus.New()
	d := New(q, store, b, &fakeRegistrar{})

	job := newTestJob("job-1", []string{"cpu-extract", "gpu-paddle"})
	if err := d.Dispatch(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	if len(q.enqueued) != 1 || q.enqueued[0].pool != "cpu-extract" {
		t.Fatalf("expected enqueue to first route step, got %+v", q.enqueued)
	}
	if job.CurrentWorker != "cpu-extract" || job.Status != ingest.StatusQueued {
		t.Fatalf("unexpected job state after dispatch: %+v", job)
	}
}

func TestDispatchRejectsEmptyRoute(t *testing.T) {
	d := New(&fakeQueue{}, newFakeStore(), bus.New(), &fakeRegistrar{})
	if err := d.Dispatch(context.Background(), newTestJob("job-2", nil)); err == nil {
		t.Fatal("expected error for empty worker route")
	}
}

func TestStepCompletedAdvancesToNextPool(t *testing.T) {
	q := &fakeQueue{}
	store := newFakeStore()
	b := bus.New()
	d := New(q, store, b, &fakeRegistrar{})

	job := newTestJob("job-3", []string{"cpu-extract", "gpu-paddle"})
	store.jobs[job.JobID] = job
	job.CurrentWorker = "cpu-extract"
	job.Status = ingest.StatusQueued

	if err := b.Emit(context.Background(), "worker.job.completed", map[string]interface{}{
		"job_id": job.JobID,
		"result": map[string]interface{}{"text": "extracted"},
	}, "test"); err != nil {
		t.Fatal(err)
	}

	updated := store.jobs[job.JobID]
	if updated.CurrentWorker != "gpu-paddle" {
		t.Fatalf("expected advance to gpu-paddle, got %s", updated.CurrentWorker)
	}
	if updated.Status != ingest.StatusProcessing {
		t.Fatalf("expected PROCESSING status mid-route, got %s", updated.Status)
	}
	if len(q.enqueued) != 1 || q.enqueued[0].pool != "gpu-paddle" {
		t.Fatalf("expected enqueue to gpu-paddle, got %+v", q.enqueued)
	}
	if q.enqueued[0].payload["text"] != "extracted" {
		t.Fatalf("expected accumulated result carried forward, got %+v", q.enqueued[0].payload)
	}
}

func TestStepCompletedAtRouteEndRegistersDocumentAndEmits(t *testing.T) {
	q := &fakeQueue{}
	store := newFakeStore()
	b := bus.New()
	reg := &fakeRegistrar{}
	d := New(q, store, b, reg)

	job := newTestJob("job-4", []string{"cpu-extract"})
	store.jobs[job.JobID] = job
	job.CurrentWorker = "cpu-extract"
	job.Status = ingest.StatusQueued

	var completedEvents []bus.Event
	b.Subscribe("ingest.job.completed", func(ctx context.Context, ev bus.Event) error {
		completedEvents = append(completedEvents, ev)
		return nil
	})

	if err := b.Emit(context.Background(), "worker.job.completed", map[string]interface{}{
		"job_id": job.JobID,
		"result": map[string]interface{}{"text": "done"},
	}, "test"); err != nil {
		t.Fatal(err)
	}

	if reg.calls != 1 {
		t.Fatalf("expected document registration exactly once, got %d", reg.calls)
	}
	if store.jobs[job.JobID].Status != ingest.StatusCompleted {
		t.Fatalf("expected job COMPLETED, got %s", store.jobs[job.JobID].Status)
	}
	if len(completedEvents) != 1 || completedEvents[0].Payload["document_id"] != "doc-job-4" {
		t.Fatalf("expected ingest.job.completed with document_id, got %+v", completedEvents)
	}
}

func TestStepFailedRetriesFromRouteHead(t *testing.T) {
	q := &fakeQueue{}
	store := newFakeStore()
	b := bus.New()
	d := New(q, store, b, &fakeRegistrar{})

	job := newTestJob("job-5", []string{"cpu-extract", "gpu-paddle"})
	job.MaxRetries = 2
	job.RetryCount = 0
	store.jobs[job.JobID] = job

	if err := b.Emit(context.Background(), "worker.job.failed", map[string]interface{}{
		"job_id": job.JobID,
		"error":  "boom",
	}, "test"); err != nil {
		t.Fatal(err)
	}

	updated := store.jobs[job.JobID]
	if updated.RetryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", updated.RetryCount)
	}
	if updated.CurrentWorker != "cpu-extract" {
		t.Fatalf("expected restart from route head, got %s", updated.CurrentWorker)
	}
	if updated.Status != ingest.StatusQueued {
		t.Fatalf("expected QUEUED after retry, got %s", updated.Status)
	}
}

func TestStepFailedDeadLettersAfterMaxRetries(t *testing.T) {
	q := &fakeQueue{}
	store := newFakeStore()
	b := bus.New()
	d := New(q, store, b, &fakeRegistrar{})
	_ = d

	job := newTestJob("job-6", []string{"cpu-extract"})
	job.MaxRetries = 1
	job.RetryCount = 1 // already exhausted
	store.jobs[job.JobID] = job

	var failedEvents []bus.Event
	b.Subscribe("ingest.job.failed", func(ctx context.Context, ev bus.Event) error {
		failedEvents = append(failedEvents, ev)
		return nil
	})

	if err := b.Emit(context.Background(), "worker.job.failed", map[string]interface{}{
		"job_id": job.JobID,
		"error":  "boom",
	}, "test"); err != nil {
		t.Fatal(err)
	}

	if store.jobs[job.JobID].Status != ingest.StatusDead {
		t.Fatalf("expected DEAD status, got %s", store.jobs[job.JobID].Status)
	}
	if len(failedEvents) != 1 {
		t.Fatalf("expected ingest.job.failed emitted once, got %d", len(failedEvents))
	}
}
