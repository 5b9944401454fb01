package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"lexconsul-backend/internal/middleware"
	"lexconsul-backend/internal/models"
	"lexconsul-backend/internal/navigation"
	"lexconsul-backend/internal/repository"
	"lexconsul-backend/internal/services"
)

type NavigationHandler struct {
	nav    *navigation.Manager
	store  *repository.Store
	alerts *services.AlertCatalogue
}

func NewNavigationHandler(nav *navigation.Manager, store *repository.Store, alerts *services.AlertCatalogue) *NavigationHandler {
	return &NavigationHandler{nav: nav, store: store, alerts: alerts}
}

// snapshot never fails: an unreadable badge or theme shows its default.
func (h *NavigationHandler) snapshot(ctx context.Context, deviceID uuid.UUID) navigation.Snapshot {
	settings, _ := h.store.LoadNotificationSettings(ctx, deviceID)
	theme, _ := h.store.LoadTheme(ctx, deviceID)
	return h.nav.Router(deviceID).Snapshot(h.alerts.UnreadCount(settings), theme)
}

func (h *NavigationHandler) Get(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	writeJSON(w, http.StatusOK, h.snapshot(r.Context(), deviceID))
}

func (h *NavigationHandler) SelectTab(w http.ResponseWriter, r *http.Request) {
	var req models.SelectTabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	tab, err := navigation.ParseTab(req.Tab)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid tab",
			map[string]string{"tab": err.Error()}, r))
		return
	}

	deviceID := middleware.GetDeviceID(r.Context())
	if err := h.nav.Router(deviceID).SelectTab(tab); err != nil {
		if errors.Is(err, navigation.ErrOverlayOpen) {
			writeJSON(w, http.StatusConflict, errorResp("OVERLAY_OPEN", err.Error(), r))
			return
		}
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.snapshot(r.Context(), deviceID))
}

func (h *NavigationHandler) OpenSpecialty(w http.ResponseWriter, r *http.Request) {
	sp, ok := specialtyParam(w, r)
	if !ok {
		return
	}
	deviceID := middleware.GetDeviceID(r.Context())
	h.nav.Router(deviceID).OpenSpecialty(sp)
	writeJSON(w, http.StatusOK, h.snapshot(r.Context(), deviceID))
}

// CloseSpecialty dismisses the overlay and aborts its in-flight call.
func (h *NavigationHandler) CloseSpecialty(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	h.nav.Router(deviceID).CloseSpecialty()
	writeJSON(w, http.StatusOK, h.snapshot(r.Context(), deviceID))
}

func (h *NavigationHandler) OpenSettings(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	h.nav.Router(deviceID).OpenSettings()
	writeJSON(w, http.StatusOK, h.snapshot(r.Context(), deviceID))
}

func (h *NavigationHandler) CloseSettings(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	h.nav.Router(deviceID).CloseSettings()
	writeJSON(w, http.StatusOK, h.snapshot(r.Context(), deviceID))
}

func (h *NavigationHandler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	var req models.ConnectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Online == nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid request body",
			map[string]string{"online": "Online flag is required"}, r))
		return
	}
	deviceID := middleware.GetDeviceID(r.Context())
	h.nav.Router(deviceID).SetOnline(*req.Online)
	writeJSON(w, http.StatusOK, h.snapshot(r.Context(), deviceID))
}
