package handlers

import (
	"net/http"

	"lexconsul-backend/internal/middleware"
	"lexconsul-backend/internal/models"
)

type DeviceHandler struct {
	jwtAuth *middleware.JWTAuth
}

func NewDeviceHandler(jwtAuth *middleware.JWTAuth) *DeviceHandler {
	return &DeviceHandler{jwtAuth: jwtAuth}
}

// Register issues an anonymous device identity. The token scopes every
// stored namespace, so clients keep it for the life of the install.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	deviceID, token, err := h.jwtAuth.IssueDeviceToken()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to issue device token", r))
		return
	}
	writeJSON(w, http.StatusCreated, models.Device{ID: deviceID, Token: token})
}
