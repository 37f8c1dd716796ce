// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package dispatch implements the Job Dispatcher: the state machine that
// advances an IngestJob across its worker_route, one pool at a time, in
// response to worker.job.completed / worker.job.failed events.
package dispatch

import (
	"context"

	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/bus"
	"github.com/mantisfury/arkham-core/internal/ingest"
	"github.com/mantisfury/arkham-core/internal/logger"
	"github.com/mantisfury/arkham-core/internal/queue"
)

// Registrar registers a completed job's result as a Document, per
// spec.md §4.7. Implemented by internal/documents.
type Registrar interface {
	RegisterFromJob(ctx context.Context, job *ingest.IngestJob, result map[string]interface{}) (documentID string, err error)
}

// Dispatcher wires the queue, the ingest job store, and the document
// registrar together, advancing jobs on worker step completion.
type Dispatcher struct {
	Queue      queue.Service
	Store      ingest.Store
	Bus        *bus.Bus
	Registrar  Registrar
}

func New(q queue.Service, store ingest.Store, b *bus.Bus, reg Registrar) *Dispatcher {
	d := &Dispatcher{Queue: q, Store: store, Bus: b, Registrar: reg}
	b.Subscribe("worker.job.completed", d.onStepCompleted)
	b.Subscribe("worker.job.failed", d.onStepFailed)
	return d
}

// Dispatch starts (or restarts) a job at the head of its worker_route.
func (d *Dispatcher) Dispatch(ctx context.Context, job *ingest.IngestJob) error {
	if len(job.WorkerRoute) == 0 {
		return apperr.Validation("job %s has an empty worker route", job.JobID)
	}

	job.CurrentWorker = job.WorkerRoute[0]
	job.Status = ingest.StatusQueued
	if err := d.Store.Update(ctx, job); err != nil {
		return err
	}

	payload := map[string]interface{}{
		"file_path":   job.Path,
		"route":       job.WorkerRoute,
		"route_index": 0,
	}
	return d.Queue.Enqueue(ctx, job.CurrentWorker, job.JobID, payload, job.Priority, job.MaxRetries)
}

func (d *Dispatcher) onStepCompleted(ctx context.Context, ev bus.Event) error {
	jobID, _ := ev.Payload["job_id"].(string)
	result, _ := ev.Payload["result"].(map[string]interface{})
	if jobID == "" {
		return apperr.Validation("worker.job.completed missing job_id")
	}

	job, err := d.Store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return apperr.NotFound("ingest job %s", jobID)
	}
	// Idempotence: a completion delivered twice after the job already
	// terminated must not re-advance or re-register the document.
	if job.Status == ingest.StatusCompleted {
		return nil
	}

	idx := indexOf(job.WorkerRoute, job.CurrentWorker)
	if idx < 0 {
		return apperr.Fatal(nil, "current_worker %s not found in route for job %s", job.CurrentWorker, jobID)
	}

	if idx+1 >= len(job.WorkerRoute) {
		job.Status = ingest.StatusCompleted
		if err := d.Store.Update(ctx, job); err != nil {
			return err
		}

		docID := ""
		if d.Registrar != nil {
			docID, err = d.Registrar.RegisterFromJob(ctx, job, result)
			if err != nil {
				logger.Errorf("dispatch: registering document for job %s: %v", jobID, err)
			}
		}

		return d.Bus.Emit(ctx, "ingest.job.completed", map[string]interface{}{
			"job_id":      jobID,
			"filename":    job.OriginalName,
			"document_id": docID,
		}, "dispatch")
	}

	next := job.WorkerRoute[idx+1]
	job.CurrentWorker = next
	job.Status = ingest.StatusProcessing
	if err := d.Store.Update(ctx, job); err != nil {
		return err
	}

	payload := map[string]interface{}{
		"route":       job.WorkerRoute,
		"route_index": idx + 1,
	}
	for k, v := range result {
		payload[k] = v // last-writer-wins per key; a prior step's value for the same key is overwritten
	}
	if _, clash := result["route"]; clash {
		logger.Warnf("dispatch: job %s step result overwrote reserved key 'route'", jobID)
	}

	return d.Queue.Enqueue(ctx, next, jobID, payload, job.Priority, job.MaxRetries)
}

func (d *Dispatcher) onStepFailed(ctx context.Context, ev bus.Event) error {
	jobID, _ := ev.Payload["job_id"].(string)
	errMsg, _ := ev.Payload["error"].(string)
	if jobID == "" {
		return apperr.Validation("worker.job.failed missing job_id")
	}

	job, err := d.Store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return apperr.NotFound("ingest job %s", jobID)
	}

	if job.RetryCount < job.MaxRetries {
		job.RetryCount++
		job.CurrentWorker = job.WorkerRoute[0]
		job.Status = ingest.StatusQueued
		if err := d.Store.Update(ctx, job); err != nil {
			return err
		}
		return d.Queue.Enqueue(ctx, job.CurrentWorker, jobID, map[string]interface{}{
			"route": job.WorkerRoute, "route_index": 0,
		}, job.Priority, job.MaxRetries)
	}

	job.Status = ingest.StatusDead
	if err := d.Store.Update(ctx, job); err != nil {
		return err
	}
	return d.Bus.Emit(ctx, "ingest.job.failed", map[string]interface{}{
		"job_id": jobID,
		"error":  errMsg,
	}, "dispatch")
}

func indexOf(route []string, worker string) int {
	for i, s := range route {
		if s == worker {
			return i
		}
	}
	return -1
}
