package navigation

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"lexconsul-backend/internal/models"
)

type routerEntry struct {
	r    *Router
	seen time.Time
}

// Manager keeps one Router per device. A device that goes quiet for longer
// than the sweep's idle window starts over on the home tab, online.
type Manager struct {
	onClose func(device uuid.UUID, sp models.Specialty)
	now     func() time.Time

	mu      sync.Mutex
	routers map[uuid.UUID]*routerEntry
}

func NewManager() *Manager {
	return &Manager{now: time.Now, routers: make(map[uuid.UUID]*routerEntry)}
}

// OnCloseSpecialty registers the hook run when a device dismisses a specialty
// overlay. Must be called before the first Router is created.
func (m *Manager) OnCloseSpecialty(fn func(device uuid.UUID, sp models.Specialty)) {
	m.mu.Lock()
	m.onClose = fn
	m.mu.Unlock()
}

func (m *Manager) Router(device uuid.UUID) *Router {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.routers[device]; ok {
		e.seen = m.now()
		return e.r
	}
	onClose := m.onClose
	r := NewRouter(func(sp models.Specialty) {
		if onClose != nil {
			onClose(device, sp)
		}
	})
	m.routers[device] = &routerEntry{r: r, seen: m.now()}
	return r
}

// Online is the connectivity gate consulted before any advisory call.
func (m *Manager) Online(device uuid.UUID) bool {
	return m.Router(device).Online()
}

// Sweep forgets routers unused for longer than idle and returns how many.
func (m *Manager) Sweep(idle time.Duration) int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for device, e := range m.routers {
		if now.Sub(e.seen) > idle {
			delete(m.routers, device)
			dropped++
		}
	}
	return dropped
}

func (m *Manager) RunJanitor(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(idle); n > 0 {
				log.Printf("navigation: dropped %d idle routers", n)
			}
		}
	}
}
