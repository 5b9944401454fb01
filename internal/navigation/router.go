// Package navigation tracks which view each device is showing: one primary
// tab, an optional specialty chat overlay and the settings modal.
package navigation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"lexconsul-backend/internal/models"
)

type Tab string

const (
	TabHome   Tab = "home"
	TabSearch Tab = "search"
	TabChat   Tab = "chat"
	TabAlerts Tab = "alerts"
	TabDocs   Tab = "docs"
)

var ErrOverlayOpen = errors.New("close the specialty chat before switching tabs")

func ParseTab(s string) (Tab, error) {
	switch t := Tab(strings.ToLower(strings.TrimSpace(s))); t {
	case TabHome, TabSearch, TabChat, TabAlerts, TabDocs:
		return t, nil
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

// Snapshot is the serialisable view state returned to the client.
type Snapshot struct {
	Tab          Tab               `json:"tab"`
	Specialty    *models.Specialty `json:"specialty,omitempty"`
	SettingsOpen bool              `json:"settings_open"`
	Online       bool              `json:"online"`
	UnreadAlerts int               `json:"unread_alerts"`
	Theme        models.Theme      `json:"theme"`
}

// Router is the view state of one device.
type Router struct {
	onClose func(models.Specialty)

	mu           sync.Mutex
	tab          Tab
	overlay      *models.Specialty
	settingsOpen bool
	online       bool
}

// NewRouter starts on the home tab, online. onClose runs whenever a specialty
// overlay is dismissed.
func NewRouter(onClose func(models.Specialty)) *Router {
	if onClose == nil {
		onClose = func(models.Specialty) {}
	}
	return &Router{onClose: onClose, tab: TabHome, online: true}
}

// SelectTab is rejected while the specialty overlay covers the tab bar.
func (r *Router) SelectTab(tab Tab) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlay != nil {
		return ErrOverlayOpen
	}
	r.tab = tab
	return nil
}

// OpenSpecialty shows the chat overlay for sp. A different overlay already
// open is closed first.
func (r *Router) OpenSpecialty(sp models.Specialty) {
	r.mu.Lock()
	prev := r.overlay
	r.overlay = &sp
	r.mu.Unlock()

	if prev != nil && *prev != sp {
		r.onClose(*prev)
	}
}

// CloseSpecialty dismisses the overlay. The primary tab is unchanged.
func (r *Router) CloseSpecialty() {
	r.mu.Lock()
	prev := r.overlay
	r.overlay = nil
	r.mu.Unlock()

	if prev != nil {
		r.onClose(*prev)
	}
}

func (r *Router) OpenSettings() {
	r.mu.Lock()
	r.settingsOpen = true
	r.mu.Unlock()
}

func (r *Router) CloseSettings() {
	r.mu.Lock()
	r.settingsOpen = false
	r.mu.Unlock()
}

func (r *Router) SetOnline(online bool) {
	r.mu.Lock()
	r.online = online
	r.mu.Unlock()
}

func (r *Router) Online() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online
}

func (r *Router) Snapshot(unreadAlerts int, theme models.Theme) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Tab:          r.tab,
		SettingsOpen: r.settingsOpen,
		Online:       r.online,
		UnreadAlerts: unreadAlerts,
		Theme:        theme,
	}
	if r.overlay != nil {
		sp := *r.overlay
		snap.Specialty = &sp
	}
	return snap
}
