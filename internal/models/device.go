package models

import (
	"github.com/google/uuid"
)

// Device is the anonymous client install that owns one persistence namespace.
type Device struct {
	ID    uuid.UUID `json:"device_id"`
	Token string    `json:"token"`
}

// ConnectivityRequest carries the client network-status signal. Online is
// required.
type ConnectivityRequest struct {
	Online *bool `json:"online"`
}

type SelectTabRequest struct {
	Tab string `json:"tab"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type TranscriptUpdated struct {
	Specialty Specialty `json:"specialty"`
	Length    int       `json:"length"`
	Phase     string    `json:"phase"`
}

type ConsultationSaved struct {
	Consultation SavedConsultation `json:"consultation"`
}

type AnalysisCompleted struct {
	DocumentType DocumentType `json:"document_type"`
	Fallback     bool         `json:"fallback"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
