package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mantisfury/arkham-core/internal/queue"
)

func newTestQueue(t *testing.T) *queue.RedisQueue {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return queue.NewRedisQueue(client)
}

func TestPoolProcessesQueuedJobs(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	const n = 5
	for i := 0; i < n; i++ {
		if err := q.Enqueue(ctx, "cpu-extract", "job-"+string(rune('a'+i)), nil, queue.PriorityUser, 3); err != nil {
			t.Fatal(err)
		}
	}

	var mu sync.Mutex
	processed := make(map[string]bool)

	pool := &Pool{
		Name:        "cpu-extract",
		Queue:       q,
		Concurrency: 2,
		LeaseTTL:    time.Second,
		PollDelay:   10 * time.Millisecond,
		Handler: func(ctx context.Context, rec *queue.Record) (map[string]interface{}, error) {
			mu.Lock()
			processed[rec.JobID] = true
			mu.Unlock()
			return map[string]interface{}{"ok": true}, nil
		},
	}

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	pool.Run(runCtx)

	mu.Lock()
	defer mu.Unlock()
	if len(processed) != n {
		t.Fatalf("expected %d jobs processed, got %d", n, len(processed))
	}
}

func TestPoolFailureDeadLettersAfterRetries(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, "gpu-qwen", "flaky", nil, queue.PriorityUser, 1); err != nil {
		t.Fatal(err)
	}

	pool := &Pool{
		Name:        "gpu-qwen",
		Queue:       q,
		Concurrency: 1,
		LeaseTTL:    time.Second,
		PollDelay:   10 * time.Millisecond,
		Handler: func(ctx context.Context, rec *queue.Record) (map[string]interface{}, error) {
			return nil, context.DeadlineExceeded
		},
	}

	runCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	pool.Run(runCtx)

	rec, err := q.Get(context.Background(), "flaky")
	if err != nil {
		t.Fatal(err)
	}
	if rec.State != queue.StateDead {
		t.Fatalf("expected job dead-lettered, got state=%s attempts=%d", rec.State, rec.Attempts)
	}
}
