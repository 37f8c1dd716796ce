// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Contradiction handlers run internal/contradiction's claim-extraction
// and verification pipeline over submitted documents, persist confirmed
// contradictions, and expose the review lifecycle plus chain detection.
package server

import (
	"net/http"

	"github.com/mantisfury/arkham-core/internal/apperr"
	"github.com/mantisfury/arkham-core/internal/contradiction"
)

func (h *handlers) contradictionAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAppError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	var req struct {
		Documents []struct {
			DocID string `json:"doc_id"`
			Text  string `json:"text"`
		} `json:"documents"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if len(req.Documents) < 2 {
		writeAppError(w, apperr.Validation("at least 2 documents are required to find contradictions"))
		return
	}

	var claims []contradiction.Claim
	for _, d := range req.Documents {
		claims = append(claims, contradiction.ExtractClaims(d.DocID, d.Text)...)
	}

	found, err := h.frame.Contradiction.Detect(r.Context(), claims)
	if err != nil {
		writeAppError(w, err)
		return
	}
	for i := range found {
		if err := h.frame.ContradictionStore.Save(r.Context(), &found[i]); err != nil {
			writeAppError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"contradictions": found})
}

func (h *handlers) contradictionList(w http.ResponseWriter, r *http.Request) {
	items, err := h.frame.ContradictionStore.All(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"contradictions": items})
}

func (h *handlers) contradictionForDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("doc_id")
	if docID == "" {
		writeAppError(w, apperr.Validation("doc_id is required"))
		return
	}
	items, err := h.frame.ContradictionStore.ForDocument(r.Context(), docID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"contradictions": items})
}

func (h *handlers) contradictionChains(w http.ResponseWriter, r *http.Request) {
	items, err := h.frame.ContradictionStore.All(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	chains := contradiction.DetectChains(items)
	writeJSON(w, http.StatusOK, map[string]interface{}{"chains": chains})
}

func (h *handlers) contradictionStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAppError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	var req struct {
		ContradictionID string `json:"contradiction_id"`
		Status          string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.ContradictionID == "" || req.Status == "" {
		writeAppError(w, apperr.Validation("contradiction_id and status are required"))
		return
	}
	if err := h.frame.ContradictionStore.UpdateStatus(r.Context(), req.ContradictionID, contradiction.Status(req.Status)); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
