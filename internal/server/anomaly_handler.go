// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Anomaly handlers run internal/anomaly's detector set against a
// submitted document and expose internal/anomaly.Store's review
// lifecycle (list/stats/status/notes).
package server

import (
	"net/http"
	"strconv"

	"github.com/mantisfury/arkham-core/internal/anomaly"
	"github.com/mantisfury/arkham-core/internal/apperr"
)

func (h *handlers) anomalyDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAppError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	var req struct {
		DocID      string `json:"doc_id"`
		FilePath   string `json:"file_path"`
		FileSize   int64  `json:"file_size"`
		MimeType   string `json:"mime_type"`
		Extension  string `json:"extension"`
		Text       string `json:"text"`
		SourceType string `json:"source_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.DocID == "" {
		writeAppError(w, apperr.Validation("doc_id is required"))
		return
	}

	doc := anomaly.Document{
		DocID:      req.DocID,
		FilePath:   req.FilePath,
		FileSize:   req.FileSize,
		MimeType:   req.MimeType,
		Extension:  req.Extension,
		Text:       req.Text,
		SourceType: req.SourceType,
	}

	found, err := anomaly.Run(r.Context(), doc, h.frame.AnomalyDetectors)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := h.frame.AnomalyStore.SaveRun(r.Context(), found); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"anomalies": found})
}

func (h *handlers) anomalyList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	items, err := h.frame.AnomalyStore.List(r.Context(), limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"anomalies": items})
}

func (h *handlers) anomalyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.frame.AnomalyStore.Stats(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handlers) anomalyStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAppError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	var req struct {
		AnomalyID string `json:"anomaly_id"`
		Status    string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.AnomalyID == "" || req.Status == "" {
		writeAppError(w, apperr.Validation("anomaly_id and status are required"))
		return
	}
	if err := h.frame.AnomalyStore.UpdateStatus(r.Context(), req.AnomalyID, anomaly.Status(req.Status)); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *handlers) anomalyBulkStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAppError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	var req struct {
		AnomalyIDs []string `json:"anomaly_ids"`
		Status     string   `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if len(req.AnomalyIDs) == 0 || req.Status == "" {
		writeAppError(w, apperr.Validation("anomaly_ids and status are required"))
		return
	}
	if err := h.frame.AnomalyStore.BulkUpdateStatus(r.Context(), req.AnomalyIDs, anomaly.Status(req.Status)); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *handlers) anomalyNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			AnomalyID string `json:"anomaly_id"`
			Note      string `json:"note"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeAppError(w, apperr.Validation("invalid request body: %v", err))
			return
		}
		if req.AnomalyID == "" || req.Note == "" {
			writeAppError(w, apperr.Validation("anomaly_id and note are required"))
			return
		}
		if err := h.frame.AnomalyStore.AddNote(r.Context(), req.AnomalyID, req.Note); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
		return
	}

	anomalyID := r.URL.Query().Get("anomaly_id")
	if anomalyID == "" {
		writeAppError(w, apperr.Validation("anomaly_id is required"))
		return
	}
	notes, err := h.frame.AnomalyStore.Notes(r.Context(), anomalyID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notes": notes})
}
