// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package queue implements the durable, priority-ordered job queue and
// lease protocol shared by every worker pool: enqueue, lease, heartbeat,
// complete, fail, get.
package queue

import (
	"context"
	"time"
)

// Priority follows spec's small-integer convention: lower value, higher
// priority.
type Priority int

const (
	PriorityUser      Priority = 1
	PriorityBatch     Priority = 2
	PriorityReprocess Priority = 3
)

// State is a job record's lifecycle state within the queue.
type State string

const (
	StateQueued    State = "queued"
	StateLeased    State = "leased"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateDead      State = "dead"
)

// Record is a job queue record: the durable unit the lease protocol
// operates on. It is distinct from an ingest IngestJob (internal/ingest) —
// a single IngestJob's worker_route dispatches a sequence of these.
type Record struct {
	JobID          string                 `json:"job_id"`
	Pool           string                 `json:"pool"`
	Priority       Priority               `json:"priority"`
	Payload        map[string]interface{} `json:"payload"`
	State          State                  `json:"state"`
	Attempts       int                    `json:"attempts"`
	MaxRetries     int                    `json:"max_retries"`
	EnqueuedAt     time.Time              `json:"enqueued_at"`
	LastHeartbeat  time.Time              `json:"last_heartbeat,omitempty"`
	LeaseExpiresAt time.Time              `json:"lease_expires_at,omitempty"`
	Result         map[string]interface{} `json:"result,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

// CanRetry reports whether a failed record is eligible for requeue.
func (r Record) CanRetry() bool {
	return r.Attempts < r.MaxRetries
}

// Service is the durable job queue and lease protocol, implemented by
// RedisQueue. Pools are plain string names ("cpu-extract", "gpu-paddle",
// ...); a single Service instance serves every pool.
type Service interface {
	Enqueue(ctx context.Context, pool, jobID string, payload map[string]interface{}, priority Priority, maxRetries int) error
	// Lease atomically claims the highest-priority, oldest leasable job in
	// pool (queued, or leased with an expired lease) for workerID. Returns
	// (nil, nil) when the pool has nothing leasable.
	Lease(ctx context.Context, pool, workerID string, leaseTTL time.Duration) (*Record, error)
	Heartbeat(ctx context.Context, jobID string, leaseTTL time.Duration) error
	Complete(ctx context.Context, jobID string, result map[string]interface{}) error
	Fail(ctx context.Context, jobID string, cause error) error
	Get(ctx context.Context, jobID string) (*Record, error)
	// Depth reports the number of jobs currently queued (not leased) in pool.
	Depth(ctx context.Context, pool string) (int64, error)
}
