package handlers

import (
	"encoding/json"
	"net/http"

	"lexconsul-backend/internal/middleware"
	"lexconsul-backend/internal/models"
	"lexconsul-backend/internal/repository"
	"lexconsul-backend/internal/services"
)

type SettingsHandler struct {
	store  *repository.Store
	alerts *services.AlertCatalogue
}

func NewSettingsHandler(store *repository.Store, alerts *services.AlertCatalogue) *SettingsHandler {
	return &SettingsHandler{store: store, alerts: alerts}
}

// Alerts returns the alerts for subscribed areas and how many are new.
func (h *SettingsHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	settings, err := h.store.LoadNotificationSettings(r.Context(), deviceID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.AlertsResponse{
		Alerts:      h.alerts.Visible(settings),
		UnreadCount: h.alerts.UnreadCount(settings),
	})
}

func (h *SettingsHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	settings, err := h.store.LoadNotificationSettings(r.Context(), deviceID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// ToggleNotification flips one specialty and returns the full map.
func (h *SettingsHandler) ToggleNotification(w http.ResponseWriter, r *http.Request) {
	var req models.ToggleNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	sp, err := models.ParseSpecialty(req.Specialty)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid specialty",
			map[string]string{"specialty": err.Error()}, r))
		return
	}

	deviceID := middleware.GetDeviceID(r.Context())
	updated, err := h.store.UpdateNotificationSettings(r.Context(), deviceID, func(n models.NotificationSettings) models.NotificationSettings {
		return n.Toggle(sp)
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *SettingsHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	theme, err := h.store.LoadTheme(r.Context(), deviceID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.Theme{"theme": theme})
}

func (h *SettingsHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req models.ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	theme, err := models.ParseTheme(req.Theme)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid theme",
			map[string]string{"theme": err.Error()}, r))
		return
	}

	deviceID := middleware.GetDeviceID(r.Context())
	h.store.SaveTheme(r.Context(), deviceID, theme)
	writeJSON(w, http.StatusOK, map[string]models.Theme{"theme": theme})
}
