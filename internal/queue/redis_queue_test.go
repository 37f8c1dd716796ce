package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) *RedisQueue {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisQueue(client)
}

func TestLeaseOrdersByPriorityThenFIFO(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, "cpu-extract", "low-1", nil, PriorityBatch, 3); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := q.Enqueue(ctx, "cpu-extract", "high-1", nil, PriorityUser, 3); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := q.Enqueue(ctx, "cpu-extract", "low-2", nil, PriorityBatch, 3); err != nil {
		t.Fatal(err)
	}

	first, err := q.Lease(ctx, "cpu-extract", "w1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if first == nil || first.JobID != "high-1" {
		t.Fatalf("expected high-1 leased first, got %+v", first)
	}

	second, err := q.Lease(ctx, "cpu-extract", "w1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if second == nil || second.JobID != "low-1" {
		t.Fatalf("expected low-1 leased second (FIFO within priority), got %+v", second)
	}
}

func TestLeaseReturnsNilWhenEmpty(t *testing.T) {
	q := newTestQueue(t)
	rec, err := q.Lease(context.Background(), "gpu-paddle", "w1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Fatalf("expected nil record for empty pool, got %+v", rec)
	}
}

func TestExpiredLeaseIsRecoveredAndAttemptsIncrement(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, "gpu-whisper", "job-1", map[string]interface{}{"x": 1}, PriorityUser, 3); err != nil {
		t.Fatal(err)
	}

	leased, err := q.Lease(ctx, "gpu-whisper", "w1", -time.Second) // already expired
	if err != nil {
		t.Fatal(err)
	}
	if leased == nil || leased.JobID != "job-1" {
		t.Fatalf("expected job-1 leased, got %+v", leased)
	}

	recovered, err := q.Lease(ctx, "gpu-whisper", "w2", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if recovered == nil || recovered.JobID != "job-1" {
		t.Fatalf("expected job-1 recovered from expired lease, got %+v", recovered)
	}
	if recovered.Attempts != 1 {
		t.Fatalf("expected attempts=1 after lease recovery, got %d", recovered.Attempts)
	}
}

func TestFailRequeuesUntilMaxRetriesThenDeadLetters(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, "cpu-archive", "job-x", nil, PriorityUser, 2); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		leased, err := q.Lease(ctx, "cpu-archive", "w1", time.Minute)
		if err != nil || leased == nil {
			t.Fatalf("expected a lease on attempt %d, err=%v rec=%v", i, err, leased)
		}
		if err := q.Fail(ctx, "job-x", errors.New("boom")); err != nil {
			t.Fatal(err)
		}
	}

	rec, err := q.Get(ctx, "job-x")
	if err != nil {
		t.Fatal(err)
	}
	if rec.State != StateDead {
		t.Fatalf("expected job dead-lettered after exhausting retries, got state=%s attempts=%d", rec.State, rec.Attempts)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, "cpu-light", "job-y", nil, PriorityUser, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Lease(ctx, "cpu-light", "w1", time.Minute); err != nil {
		t.Fatal(err)
	}

	result := map[string]interface{}{"text": "hello"}
	if err := q.Complete(ctx, "job-y", result); err != nil {
		t.Fatal(err)
	}
	if err := q.Complete(ctx, "job-y", map[string]interface{}{"text": "ignored"}); err != nil {
		t.Fatal(err)
	}

	rec, err := q.Get(ctx, "job-y")
	if err != nil {
		t.Fatal(err)
	}
	if rec.State != StateCompleted {
		t.Fatalf("expected completed state, got %s", rec.State)
	}
	if rec.Result["text"] != "hello" {
		t.Fatalf("expected first complete's result to stick, got %v", rec.Result)
	}
}
