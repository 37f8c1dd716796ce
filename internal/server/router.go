// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package server implements the HTTP surface: ingest, embed, search,
// anomalies, and contradictions, each a thin JSON layer over the
// Frame's shards. Grounded on the teacher's per-domain handler-file
// split (ingest_handler.go, search_handler.go, stats_handler.go, ...)
// and its http.ServeMux + json.NewDecoder/Marshal idiom, retargeted
// from the teacher's fixed "the_hive" collection to the handlers
// described by spec.md §6.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/frame"
	"github.com/mantisfury/arkham-core/internal/server/middleware"
)

// NewRouter builds the full HTTP surface over f, wrapped in the
// request-logging middleware.
func NewRouter(f *frame.Frame, hub *NotificationHub, staticDir string) http.Handler {
	mux := http.NewServeMux()

	h := &handlers{frame: f}

	mux.HandleFunc("/api/health", h.health)
	if hub != nil {
		mux.HandleFunc("/ws", hub.ServeWebSocket)
	}

	mux.HandleFunc("/api/ingest/upload", h.ingestUpload)
	mux.HandleFunc("/api/ingest/path", h.ingestPath)
	mux.HandleFunc("/api/ingest/job", h.ingestJobStatus)
	mux.HandleFunc("/api/ingest/retry", h.ingestRetry)
	mux.HandleFunc("/api/ingest/queue", h.ingestQueueDepth)

	mux.HandleFunc("/api/embed/text", h.embedText)
	mux.HandleFunc("/api/embed/batch", h.embedBatch)
	mux.HandleFunc("/api/embed/current", h.embedCurrent)
	mux.HandleFunc("/api/embed/switch", h.embedSwitch)

	mux.HandleFunc("/api/search/", h.search)
	mux.HandleFunc("/api/search/semantic", h.searchSemantic)
	mux.HandleFunc("/api/search/keyword", h.searchKeyword)
	mux.HandleFunc("/api/search/regex", h.searchRegex)

	mux.HandleFunc("/api/anomalies/detect", h.anomalyDetect)
	mux.HandleFunc("/api/anomalies/list", h.anomalyList)
	mux.HandleFunc("/api/anomalies/stats", h.anomalyStats)
	mux.HandleFunc("/api/anomalies/bulk-status", h.anomalyBulkStatus)
	mux.HandleFunc("/api/anomalies/status", h.anomalyStatus)
	mux.HandleFunc("/api/anomalies/notes", h.anomalyNotes)

	mux.HandleFunc("/api/contradictions/analyze", h.contradictionAnalyze)
	mux.HandleFunc("/api/contradictions/list", h.contradictionList)
	mux.HandleFunc("/api/contradictions/document", h.contradictionForDocument)
	mux.HandleFunc("/api/contradictions/chains", h.contradictionChains)
	mux.HandleFunc("/api/contradictions/status", h.contradictionStatus)

	if staticDir != "" {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	return middleware.TrafficLogger(mux)
}

type handlers struct {
	frame *frame.Frame
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAppError maps an apperr.Kind to its HTTP status and writes the
// error body, so every handler reports failures consistently without
// each one hand-picking a status code.
func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindDependencyUnavailable, apperr.KindTransientWorkerFailure:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
