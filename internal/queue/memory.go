// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

// MemoryQueue is an in-process Service, the no-Redis-available
// degraded-mode counterpart to internal/vectordb.MockVectorDB and
// internal/embeddings.MockEmbedder: same priority/lease/retry contract,
// backed by a mutex-guarded map instead of Redis sorted sets.
type MemoryQueue struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{records: make(map[string]*Record)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, pool, jobID string, payload map[string]interface{}, priority Priority, maxRetries int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records[jobID] = &Record{
		JobID:      jobID,
		Pool:       pool,
		Priority:   priority,
		Payload:    payload,
		State:      StateQueued,
		MaxRetries: maxRetries,
		EnqueuedAt: time.Now(),
	}
	return nil
}

func (q *MemoryQueue) Lease(ctx context.Context, pool, workerID string, leaseTTL time.Duration) (*Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var candidates []*Record
	for _, r := range q.records {
		if r.Pool != pool {
			continue
		}
		if r.State == StateQueued || (r.State == StateLeased && now.After(r.LeaseExpiresAt)) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].EnqueuedAt.Before(candidates[j].EnqueuedAt)
	})

	r := candidates[0]
	if r.State == StateLeased {
		r.Attempts++
	}
	r.State = StateLeased
	r.LastHeartbeat = now
	r.LeaseExpiresAt = now.Add(leaseTTL)
	cp := *r
	return &cp, nil
}

func (q *MemoryQueue) Heartbeat(ctx context.Context, jobID string, leaseTTL time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.records[jobID]
	if !ok {
		return apperr.NotFound("job %s", jobID)
	}
	if r.State != StateLeased {
		return apperr.Conflict("job %s is not leased (state=%s)", jobID, r.State)
	}
	now := time.Now()
	r.LastHeartbeat = now
	r.LeaseExpiresAt = now.Add(leaseTTL)
	return nil
}

func (q *MemoryQueue) Complete(ctx context.Context, jobID string, result map[string]interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.records[jobID]
	if !ok {
		return apperr.NotFound("job %s", jobID)
	}
	if r.State == StateCompleted {
		return nil
	}
	r.State = StateCompleted
	r.Result = result
	return nil
}

func (q *MemoryQueue) Fail(ctx context.Context, jobID string, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.records[jobID]
	if !ok {
		return apperr.NotFound("job %s", jobID)
	}
	if cause != nil {
		r.Error = cause.Error()
	}
	r.Attempts++
	if r.CanRetry() {
		r.State = StateQueued
	} else {
		r.State = StateDead
	}
	return nil
}

func (q *MemoryQueue) Get(ctx context.Context, jobID string) (*Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.records[jobID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (q *MemoryQueue) Depth(ctx context.Context, pool string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int64
	for _, r := range q.records {
		if r.Pool == pool && r.State == StateQueued {
			n++
		}
	}
	return n, nil
}

var _ Service = (*MemoryQueue)(nil)

// newJobID is a convenience for callers (e.g. the seeder, bulk APIs)
// that need a queue-unrelated unique ID.
func newJobID() string { return uuid.NewString() }
