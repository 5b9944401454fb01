package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"lexconsul-backend/internal/models"
)

type AnalysisResult struct {
	DocumentType models.DocumentType
	Text         string
	Fallback     bool
	CompletedAt  time.Time
}

// AnalysisSurface runs one document analysis at a time for a device and keeps
// the latest result for export.
type AnalysisSurface struct {
	device  uuid.UUID
	advisor Advisor
	online  func() bool
	pub     Publisher
	now     func() time.Time

	mu     sync.Mutex
	phase  Phase
	last   *AnalysisResult
	cancel context.CancelFunc
}

func newAnalysisSurface(device uuid.UUID, advisor Advisor, online func() bool, pub Publisher) *AnalysisSurface {
	return &AnalysisSurface{
		device:  device,
		advisor: advisor,
		online:  online,
		pub:     pub,
		now:     time.Now,
		phase:   PhaseIdle,
	}
}

// Start analyses in. Offline devices, empty input and a busy surface are
// rejected without touching the stored result.
func (a *AnalysisSurface) Start(ctx context.Context, in models.AnalysisInput, docType models.DocumentType) (AnalysisResult, error) {
	a.mu.Lock()
	if !a.online() {
		a.mu.Unlock()
		return AnalysisResult{}, ErrOffline
	}
	if in.Empty() {
		a.mu.Unlock()
		return AnalysisResult{}, ErrEmptyInput
	}
	if a.phase != PhaseIdle {
		a.mu.Unlock()
		return AnalysisResult{}, ErrBusy
	}
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.cancel = cancel
	a.phase = PhaseAwaiting
	a.mu.Unlock()

	res := a.advisor.Analyze(callCtx, in, docType)

	result := AnalysisResult{
		DocumentType: docType,
		Text:         res.Text,
		Fallback:     res.Fallback,
		CompletedAt:  a.now(),
	}

	a.mu.Lock()
	a.last = &result
	a.phase = PhaseIdle
	a.cancel = nil
	a.mu.Unlock()

	a.pub.Publish(ctx, a.device, models.WSMessage{
		Type:    "analysis_completed",
		Payload: models.AnalysisCompleted{DocumentType: docType, Fallback: res.Fallback},
	})
	return result, nil
}

// Last returns the most recent result, if any.
func (a *AnalysisSurface) Last() (AnalysisResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return AnalysisResult{}, false
	}
	return *a.last, true
}

// Phase is idle unless an analysis is in flight.
func (a *AnalysisSurface) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Cancel aborts the in-flight call, if any. Start still returns, carrying the
// failure text as its result.
func (a *AnalysisSurface) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}
