// Package session holds the per-surface state machines: one Controller per
// (device, specialty) chat and one AnalysisSurface per device.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"lexconsul-backend/internal/models"
	"lexconsul-backend/internal/services"
)

var (
	ErrOffline      = errors.New("device is offline")
	ErrBusy         = errors.New("a request is already in flight for this surface")
	ErrEmptyMessage = errors.New("message has no text or image")
	ErrEmptyInput   = errors.New("nothing to analyse")
	ErrSurfaceReset = errors.New("surface was reset while the request was in flight")
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseSending  Phase = "sending"
	PhaseAwaiting Phase = "awaiting_response"
)

// Advisor is the subset of services.AdvisoryService the controllers call.
type Advisor interface {
	Converse(ctx context.Context, specialty models.Specialty, prompt string, history []models.ChatMessage, image string) services.Reply
	Analyze(ctx context.Context, in models.AnalysisInput, docType models.DocumentType) services.Analysis
}

// Store is the persistence the controllers need. Load and update errors mean
// the backend could not be read and nothing was written.
type Store interface {
	LoadTranscript(ctx context.Context, device uuid.UUID, sp models.Specialty) ([]models.ChatMessage, error)
	SaveTranscript(ctx context.Context, device uuid.UUID, sp models.Specialty, msgs []models.ChatMessage)
	UpdateSavedConsultations(ctx context.Context, device uuid.UUID, fn func([]models.SavedConsultation) []models.SavedConsultation) ([]models.SavedConsultation, error)
}

// Publisher pushes device events; implemented by websocket.Hub.
type Publisher interface {
	Publish(ctx context.Context, device uuid.UUID, msg models.WSMessage)
}

// OnlineFunc reports the connectivity signal last received from a device.
type OnlineFunc func(device uuid.UUID) bool

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, uuid.UUID, models.WSMessage) {}
