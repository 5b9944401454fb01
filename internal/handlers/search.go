package handlers

import (
	"encoding/json"
	"net/http"

	"lexconsul-backend/internal/middleware"
	"lexconsul-backend/internal/models"
	"lexconsul-backend/internal/navigation"
	"lexconsul-backend/internal/services"
)

type SearchHandler struct {
	search *services.SearchService
	nav    *navigation.Manager
}

func NewSearchHandler(search *services.SearchService, nav *navigation.Manager) *SearchHandler {
	return &SearchHandler{search: search, nav: nav}
}

// Search records the term and opens the general chat overlay, where the
// client submits it as a question.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	deviceID := middleware.GetDeviceID(r.Context())
	term, history, err := h.search.Record(r.Context(), deviceID, req.Term)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.nav.Router(deviceID).OpenSpecialty(models.SpecialtyGeneral)

	writeJSON(w, http.StatusOK, models.SearchResponse{Term: term, History: history})
}

func (h *SearchHandler) History(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	history, err := h.search.History(r.Context(), deviceID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"history": history})
}

func (h *SearchHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	online := h.nav.Online(deviceID)
	suggestions := h.search.Suggestions(r.Context(), deviceID, r.URL.Query().Get("q"), online)
	writeJSON(w, http.StatusOK, models.SuggestionsResponse{Suggestions: suggestions})
}
