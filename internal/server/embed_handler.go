// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Embed handlers expose internal/embeddings.Manager: single-text and
// batch embedding, the active model's ModelInfo, and switch_model.
package server

import (
	"net/http"

	"github.com/mantisfury/arkham-core/internal/apperr"
)

func (h *handlers) embedText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.Text == "" {
		writeAppError(w, apperr.Validation("text is required"))
		return
	}
	vec, err := h.frame.EmbeddingBound.EmbedText(r.Context(), req.Text)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"embedding": vec})
}

func (h *handlers) embedBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Texts []string `json:"texts"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if len(req.Texts) == 0 {
		writeAppError(w, apperr.Validation("texts is required"))
		return
	}
	vecs, err := h.frame.EmbeddingBound.EmbedBatch(r.Context(), req.Texts)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"embeddings": vecs})
}

func (h *handlers) embedCurrent(w http.ResponseWriter, r *http.Request) {
	info, err := h.frame.Embeddings.Info(h.frame.EmbeddingBound.DefaultModel)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *handlers) embedSwitch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAppError(w, apperr.Validation("method %s not allowed", r.Method))
		return
	}
	var req struct {
		Model       string `json:"model"`
		ConfirmWipe bool   `json:"confirm_wipe"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.Model == "" {
		writeAppError(w, apperr.Validation("model is required"))
		return
	}
	result, err := h.frame.Embeddings.SwitchModel(r.Context(), req.Model, req.ConfirmWipe)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if result.RequiresWipe && !result.CollectionsWiped {
		writeJSON(w, http.StatusConflict, result)
		return
	}
	h.frame.EmbeddingBound.DefaultModel = req.Model
	writeJSON(w, http.StatusOK, result)
}
