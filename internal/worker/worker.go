// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package worker runs goroutine pools that lease jobs from a named
// queue.Service pool, heartbeat while processing, and report completion
// or failure back to the queue. This generalizes the teacher's
// StartWorkers/AnalystPool/TaggerPool goroutine-pool pattern to the
// priority-lease-retry queue.Service contract.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/logger"
	"github.com/mantisfury/arkham-core/internal/queue"
)

// Handler processes one leased job and returns the step result, or an
// error. Handlers should be idempotent: a crash after Handler returns but
// before Complete is observed results in the same job being re-leased.
type Handler func(ctx context.Context, rec *queue.Record) (result map[string]interface{}, err error)

// Pool runs Concurrency workers against a single named queue pool.
type Pool struct {
	Name        string
	Queue       queue.Service
	Handler     Handler
	Concurrency int
	LeaseTTL    time.Duration
	PollDelay   time.Duration // how long to sleep when the pool is empty
}

// Run starts Concurrency goroutines leasing from Pool.Name until ctx is
// canceled, then waits for in-flight jobs to finish.
func (p *Pool) Run(ctx context.Context) error {
	if p.Concurrency <= 0 {
		p.Concurrency = 1
	}
	if p.LeaseTTL <= 0 {
		p.LeaseTTL = 2 * time.Minute
	}
	if p.PollDelay <= 0 {
		p.PollDelay = 250 * time.Millisecond
	}

	var wg sync.WaitGroup
	for i := 0; i < p.Concurrency; i++ {
		wg.Add(1)
		workerID := fmt.Sprintf("%s-%d-%s", p.Name, i, uuid.NewString()[:8])
		go func() {
			defer wg.Done()
			p.loop(ctx, workerID)
		}()
	}
	wg.Wait()
	return nil
}

func (p *Pool) loop(ctx context.Context, workerID string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rec, err := p.Queue.Lease(ctx, p.Name, workerID, p.LeaseTTL)
		if err != nil {
			logger.Errorf("worker %s: lease from %s failed: %v", workerID, p.Name, err)
			sleepOrDone(ctx, p.PollDelay)
			continue
		}
		if rec == nil {
			sleepOrDone(ctx, p.PollDelay)
			continue
		}

		p.process(ctx, workerID, rec)
	}
}

func (p *Pool) process(ctx context.Context, workerID string, rec *queue.Record) {
	stop := p.startHeartbeat(ctx, rec.JobID)
	defer stop()

	result, err := p.Handler(ctx, rec)
	if err != nil {
		logger.Errorf("worker %s: job %s failed: %v", workerID, rec.JobID, err)
		if ferr := p.Queue.Fail(ctx, rec.JobID, err); ferr != nil {
			logger.Errorf("worker %s: recording failure for job %s: %v", workerID, rec.JobID, ferr)
		}
		return
	}

	if cerr := p.Queue.Complete(ctx, rec.JobID, result); cerr != nil {
		logger.Errorf("worker %s: completing job %s: %v", workerID, rec.JobID, cerr)
	}
}

// startHeartbeat runs a background heartbeat at LeaseTTL/3, per the lease
// contract ("a worker must heartbeat at least every lease_ttl/3"), and
// returns a function that stops it once the job finishes.
func (p *Pool) startHeartbeat(ctx context.Context, jobID string) func() {
	interval := p.LeaseTTL / 3
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				if err := p.Queue.Heartbeat(ctx, jobID, p.LeaseTTL); err != nil {
					if apperr.KindOf(err) != apperr.KindNotFound {
						logger.Warnf("heartbeat for job %s failed: %v", jobID, err)
					}
				}
			}
		}
	}()
	return func() { close(done) }
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// RunPools starts one Pool.Run per pool concurrently and blocks until ctx
// is canceled and every pool has drained.
func RunPools(ctx context.Context, pools []*Pool) error {
	var wg sync.WaitGroup
	for _, p := range pools {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				logger.Errorf("pool %s stopped with error: %v", p.Name, err)
			}
		}()
	}
	wg.Wait()
	return nil
}
