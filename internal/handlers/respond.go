package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lexconsul-backend/internal/middleware"
	"lexconsul-backend/internal/models"
	"lexconsul-backend/internal/repository"
	"lexconsul-backend/internal/services"
	"lexconsul-backend/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrOffline):
		writeJSON(w, http.StatusConflict, errorResp("OFFLINE", "Device is offline", r))
		return
	case errors.Is(err, session.ErrBusy):
		writeJSON(w, http.StatusConflict, errorResp("BUSY", "A request is already in progress", r))
		return
	case errors.Is(err, session.ErrSurfaceReset):
		writeJSON(w, http.StatusConflict, errorResp("RESET", "The conversation was cleared while waiting for a reply", r))
		return
	case errors.Is(err, session.ErrEmptyMessage), errors.Is(err, session.ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
		return
	case errors.Is(err, repository.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResp("STORE_UNAVAILABLE", "Stored data could not be read, try again", r))
		return
	}

	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
	case *services.ConflictError:
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", e.Message, r))
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
	case *services.UnauthorizedError:
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", e.Message, r))
	case *services.RateLimitError:
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", e.Message, r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

// specialtyParam reads {specialty} from the route, writing a 400 when invalid.
func specialtyParam(w http.ResponseWriter, r *http.Request) (models.Specialty, bool) {
	sp, err := models.ParseSpecialty(chi.URLParam(r, "specialty"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Invalid specialty",
			map[string]string{"specialty": err.Error()}, r))
		return "", false
	}
	return sp, true
}
