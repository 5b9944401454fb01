package repository

import (
	"fmt"

	"github.com/google/uuid"
)

// Namespace names one logical entity a device persists.
type Namespace string

const (
	NamespaceChat               Namespace = "chat" // qualified by specialty
	NamespaceSavedConsultations Namespace = "saved_consultations"
	NamespaceSearchHistory      Namespace = "search_history"
	NamespaceNotificationPrefs  Namespace = "notif_prefs"
	NamespaceTheme              Namespace = "theme"
)

const keyPrefix = "lexconsul"

// Key builds lexconsul:<device>:<namespace>[:<qualifier>].
func Key(device uuid.UUID, ns Namespace, qualifier string) string {
	if qualifier == "" {
		return fmt.Sprintf("%s:%s:%s", keyPrefix, device, ns)
	}
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, device, ns, qualifier)
}
