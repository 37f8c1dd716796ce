// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Ingest handlers implement spec.md §6's upload/path/job/retry/queue
// surface over internal/ingest.Manager and internal/dispatch.Dispatcher.
// Grounded on the teacher's internal/server/ingest_handler.go's
// multipart-upload parsing, retargeted from its fixed Qdrant collection
// to the worker-route dispatch this module implements.
package server

import (
	"net/http"
	"strconv"

	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/queue"
)

func (h *handlers) ingestUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAppError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeAppError(w, apperr.Validation("missing file field: %v", err))
		return
	}
	defer file.Close()

	priority := queue.PriorityUser
	if p := r.FormValue("priority"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			priority = queue.Priority(n)
		}
	}

	ctx := r.Context()
	job, err := h.frame.Ingest.ReceiveFile(ctx, file, header.Filename, priority)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := h.frame.Dispatcher.Dispatch(ctx, job); err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (h *handlers) ingestPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAppError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}

	var req struct {
		Root      string `json:"root"`
		Recursive bool   `json:"recursive"`
		Priority  int    `json:"priority"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	priority := queue.PriorityBatch
	if req.Priority != 0 {
		priority = queue.Priority(req.Priority)
	}

	ctx := r.Context()
	batch, err := h.frame.Ingest.ReceivePath(ctx, req.Root, req.Recursive, priority)
	if err != nil {
		writeAppError(w, err)
		return
	}

	for _, jobID := range batch.JobIDs {
		job, err := h.frame.IngestStore.Get(ctx, jobID)
		if err != nil || job == nil {
			continue
		}
		_ = h.frame.Dispatcher.Dispatch(ctx, job)
	}

	writeJSON(w, http.StatusAccepted, batch)
}

func (h *handlers) ingestJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		writeAppError(w, apperr.Validation("job_id is required"))
		return
	}
	job, err := h.frame.IngestStore.Get(r.Context(), jobID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if job == nil {
		writeAppError(w, apperr.NotFound("ingest job %s", jobID))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *handlers) ingestRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAppError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	var req struct {
		JobID string `json:"job_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	ctx := r.Context()
	job, err := h.frame.IngestStore.Get(ctx, req.JobID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if job == nil {
		writeAppError(w, apperr.NotFound("ingest job %s", req.JobID))
		return
	}
	job.RetryCount = 0
	if err := h.frame.Dispatcher.Dispatch(ctx, job); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *handlers) ingestQueueDepth(w http.ResponseWriter, r *http.Request) {
	pool := r.URL.Query().Get("pool")
	if pool == "" {
		writeAppError(w, apperr.Validation("pool is required"))
		return
	}
	depth, err := h.frame.Queue.Depth(r.Context(), pool)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pool": pool, "depth": depth})
}
