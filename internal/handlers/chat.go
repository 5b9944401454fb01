package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"lexconsul-backend/internal/middleware"
	"lexconsul-backend/internal/models"
	"lexconsul-backend/internal/repository"
	"lexconsul-backend/internal/session"
)

type ChatHandler struct {
	registry *session.Registry
	store    *repository.Store
	now      func() time.Time
}

func NewChatHandler(registry *session.Registry, store *repository.Store) *ChatHandler {
	return &ChatHandler{registry: registry, store: store, now: time.Now}
}

func (h *ChatHandler) transcript(c *session.Controller) models.TranscriptResponse {
	snap := c.Snapshot(h.now())
	return models.TranscriptResponse{
		Specialty: c.Specialty(),
		Messages:  snap.Messages,
		Phase:     string(snap.Phase),
		Saved:     snap.Saved,
	}
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	sp, ok := specialtyParam(w, r)
	if !ok {
		return
	}
	deviceID := middleware.GetDeviceID(r.Context())
	c, err := h.registry.Controller(r.Context(), deviceID, sp)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.transcript(c))
}

// Send blocks until the advisory reply (or its fallback) is recorded. The
// call outlives a dropped connection; it is cancelled by closing the overlay
// or resetting the chat.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	sp, ok := specialtyParam(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	deviceID := middleware.GetDeviceID(r.Context())
	c, err := h.registry.Controller(r.Context(), deviceID, sp)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if _, err := c.Send(context.WithoutCancel(r.Context()), req.Content, req.Image); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.transcript(c))
}

func (h *ChatHandler) Save(w http.ResponseWriter, r *http.Request) {
	sp, ok := specialtyParam(w, r)
	if !ok {
		return
	}
	deviceID := middleware.GetDeviceID(r.Context())
	c, err := h.registry.Controller(r.Context(), deviceID, sp)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	consultation, saved, err := c.SaveConsultation(r.Context(), h.now())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	resp := models.SaveConsultationResponse{Saved: saved}
	if saved {
		resp.Consultation = &consultation
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sp, ok := specialtyParam(w, r)
	if !ok {
		return
	}
	deviceID := middleware.GetDeviceID(r.Context())
	c, err := h.registry.Controller(r.Context(), deviceID, sp)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	c.Reset(r.Context())
	writeJSON(w, http.StatusOK, h.transcript(c))
}

// Consultations lists saved consultations newest first; ?limit= trims the list
// for the home screen.
func (h *ChatHandler) Consultations(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	list, err := h.store.LoadSavedConsultations(r.Context(), deviceID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid limit",
				map[string]string{"limit": "Limit must be a positive integer"}, r))
			return
		}
		if limit < len(list) {
			list = list[:limit]
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"consultations": list,
		"total":         len(list),
	})
}
