package session

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lexconsul-backend/internal/models"
	"lexconsul-backend/internal/repository"
)

// SavedAckDuration is how long Saved reports true after a consultation is saved.
const SavedAckDuration = 2000 * time.Millisecond

// Controller owns the transcript of one chat surface. At most one send is in
// flight at a time.
type Controller struct {
	device    uuid.UUID
	specialty models.Specialty
	store     Store
	advisor   Advisor
	online    func() bool
	pub       Publisher

	mu         sync.Mutex
	transcript []models.ChatMessage
	phase      Phase
	savedUntil time.Time
	cancel     context.CancelFunc
	generation int
}

type Snapshot struct {
	Messages []models.ChatMessage
	Phase    Phase
	Saved    bool
}

func newController(device uuid.UUID, sp models.Specialty, transcript []models.ChatMessage, store Store, advisor Advisor, online func() bool, pub Publisher) *Controller {
	return &Controller{
		device:     device,
		specialty:  sp,
		store:      store,
		advisor:    advisor,
		online:     online,
		pub:        pub,
		transcript: transcript,
		phase:      PhaseIdle,
	}
}

func (c *Controller) Specialty() models.Specialty { return c.specialty }

func (c *Controller) Snapshot(now time.Time) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Messages: c.copyTranscript(),
		Phase:    c.phase,
		Saved:    now.Before(c.savedUntil),
	}
}

// Send appends the user's message and the model's reply (or a fallback). Both
// entries are added even when the advisory call fails.
func (c *Controller) Send(ctx context.Context, text, image string) ([]models.ChatMessage, error) {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if !c.online() {
		c.mu.Unlock()
		return nil, ErrOffline
	}
	if text == "" && image == "" {
		c.mu.Unlock()
		return nil, ErrEmptyMessage
	}
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	history := c.copyTranscript()
	userIdx := len(c.transcript)
	c.transcript = append(c.transcript, models.ChatMessage{
		Role:    models.RoleUser,
		Content: text,
		Image:   image,
		Status:  models.StatusSending,
	})
	c.phase = PhaseSending
	c.store.SaveTranscript(ctx, c.device, c.specialty, c.transcript)

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	generation := c.generation
	c.mu.Unlock()

	c.publishTranscript(ctx)

	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		return nil, ErrSurfaceReset
	}
	c.phase = PhaseAwaiting
	c.mu.Unlock()

	reply := c.advisor.Converse(callCtx, c.specialty, text, history, image)

	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		log.Printf("session: %s/%s reset during send, reply dropped", c.device, c.specialty)
		return nil, ErrSurfaceReset
	}
	c.transcript[userIdx].Status = models.StatusSent
	modelMsg := models.ChatMessage{
		Role:    models.RoleModel,
		Content: reply.Text,
		Sources: reply.Sources,
	}
	c.transcript = append(c.transcript, modelMsg)
	c.phase = PhaseIdle
	c.cancel = nil
	c.store.SaveTranscript(ctx, c.device, c.specialty, c.transcript)
	added := []models.ChatMessage{c.transcript[userIdx], modelMsg}
	c.mu.Unlock()

	c.publishTranscript(ctx)
	return added, nil
}

// SaveConsultation bookmarks the last [user, model] pair. It reports false and
// changes nothing when the transcript does not end in that pattern, or when the
// saved list cannot be read.
func (c *Controller) SaveConsultation(ctx context.Context, now time.Time) (models.SavedConsultation, bool, error) {
	c.mu.Lock()
	n := len(c.transcript)
	if n < 2 || c.transcript[n-2].Role != models.RoleUser || c.transcript[n-1].Role != models.RoleModel {
		c.mu.Unlock()
		return models.SavedConsultation{}, false, nil
	}
	query, response := c.transcript[n-2].Content, c.transcript[n-1].Content

	var saved models.SavedConsultation
	_, err := c.store.UpdateSavedConsultations(ctx, c.device, func(list []models.SavedConsultation) []models.SavedConsultation {
		id := now.UnixMilli()
		if len(list) > 0 && list[0].ID >= id {
			id = list[0].ID + 1
		}
		saved = models.SavedConsultation{
			ID:        id,
			Specialty: c.specialty,
			Date:      now.Format("02/01/2006"),
			Query:     query,
			Response:  response,
		}
		return repository.PrependConsultation(list, saved)
	})
	if err != nil {
		c.mu.Unlock()
		return models.SavedConsultation{}, false, err
	}
	c.savedUntil = now.Add(SavedAckDuration)
	c.mu.Unlock()

	c.pub.Publish(ctx, c.device, models.WSMessage{
		Type:    "consultation_saved",
		Payload: models.ConsultationSaved{Consultation: saved},
	})
	return saved, true, nil
}

func (c *Controller) busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase != PhaseIdle
}

// Reset clears the transcript and persists the empty list. An in-flight send is
// cancelled and its reply discarded.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.transcript = []models.ChatMessage{}
	c.phase = PhaseIdle
	c.savedUntil = time.Time{}
	c.store.SaveTranscript(ctx, c.device, c.specialty, c.transcript)
	c.mu.Unlock()

	c.publishTranscript(ctx)
}

// Cancel aborts the in-flight advisory call, if any. The pending Send still
// completes and records the cancellation message as the model's turn.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Controller) copyTranscript() []models.ChatMessage {
	out := make([]models.ChatMessage, len(c.transcript))
	copy(out, c.transcript)
	return out
}

func (c *Controller) publishTranscript(ctx context.Context) {
	c.mu.Lock()
	payload := models.TranscriptUpdated{
		Specialty: c.specialty,
		Length:    len(c.transcript),
		Phase:     string(c.phase),
	}
	c.mu.Unlock()

	c.pub.Publish(ctx, c.device, models.WSMessage{Type: "transcript_updated", Payload: payload})
}
