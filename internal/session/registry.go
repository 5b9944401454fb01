package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"lexconsul-backend/internal/models"
)

type surfaceKey struct {
	device    uuid.UUID
	specialty models.Specialty
}

type controllerEntry struct {
	c    *Controller
	seen time.Time
}

type analysisEntry struct {
	a    *AnalysisSurface
	seen time.Time
}

// Registry hands out the controllers for each device, creating them from
// persisted state on first use. Idle surfaces are dropped by Sweep and
// rebuilt from the store when next asked for.
type Registry struct {
	store   Store
	advisor Advisor
	online  OnlineFunc
	pub     Publisher
	now     func() time.Time

	mu          sync.Mutex
	controllers map[surfaceKey]*controllerEntry
	analyses    map[uuid.UUID]*analysisEntry
}

func NewRegistry(store Store, advisor Advisor, online OnlineFunc, pub Publisher) *Registry {
	if pub == nil {
		pub = noopPublisher{}
	}
	if online == nil {
		online = func(uuid.UUID) bool { return true }
	}
	return &Registry{
		store:       store,
		advisor:     advisor,
		online:      online,
		pub:         pub,
		now:         time.Now,
		controllers: make(map[surfaceKey]*controllerEntry),
		analyses:    make(map[uuid.UUID]*analysisEntry),
	}
}

// Controller returns the cached controller or loads its transcript. A failed
// read is returned and nothing is cached, so the next call tries again.
func (r *Registry) Controller(ctx context.Context, device uuid.UUID, sp models.Specialty) (*Controller, error) {
	key := surfaceKey{device: device, specialty: sp}

	r.mu.Lock()
	if e, ok := r.controllers[key]; ok {
		e.seen = r.now()
		r.mu.Unlock()
		return e.c, nil
	}
	r.mu.Unlock()

	transcript, err := r.store.LoadTranscript(ctx, device, sp)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.controllers[key]; ok {
		e.seen = r.now()
		return e.c, nil
	}
	c := newController(device, sp, transcript, r.store, r.advisor, r.gate(device), r.pub)
	r.controllers[key] = &controllerEntry{c: c, seen: r.now()}
	return c, nil
}

func (r *Registry) Analysis(device uuid.UUID) *AnalysisSurface {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.analyses[device]; ok {
		e.seen = r.now()
		return e.a
	}
	a := newAnalysisSurface(device, r.advisor, r.gate(device), r.pub)
	r.analyses[device] = &analysisEntry{a: a, seen: r.now()}
	return a
}

// CancelSurface aborts the in-flight call of a chat surface without creating
// a controller for it.
func (r *Registry) CancelSurface(device uuid.UUID, sp models.Specialty) {
	r.mu.Lock()
	e, ok := r.controllers[surfaceKey{device: device, specialty: sp}]
	r.mu.Unlock()
	if ok {
		e.c.Cancel()
	}
}

// Sweep drops surfaces unused for longer than idle. Surfaces with a call in
// flight are kept. It returns how many were dropped.
func (r *Registry) Sweep(idle time.Duration) int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for key, e := range r.controllers {
		if now.Sub(e.seen) > idle && !e.c.busy() {
			delete(r.controllers, key)
			dropped++
		}
	}
	for device, e := range r.analyses {
		if now.Sub(e.seen) > idle && e.a.Phase() == PhaseIdle {
			delete(r.analyses, device)
			dropped++
		}
	}
	return dropped
}

// RunJanitor sweeps every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				log.Printf("session: dropped %d idle surfaces", n)
			}
		}
	}
}

func (r *Registry) gate(device uuid.UUID) func() bool {
	return func() bool { return r.online(device) }
}
