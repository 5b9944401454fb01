package services

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"

	"lexconsul-backend/internal/models"
)

//go:embed alerts.toml
var alertsTOML string

// AlertCatalogue is the fixed set of legislative alerts. It is read-only after
// construction.
type AlertCatalogue struct {
	alerts []models.LegislativeAlert
}

func NewAlertCatalogue() (*AlertCatalogue, error) {
	return parseAlertCatalogue(alertsTOML)
}

func parseAlertCatalogue(src string) (*AlertCatalogue, error) {
	var doc struct {
		Alerts []models.LegislativeAlert `toml:"alert"`
	}
	if _, err := toml.Decode(src, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse alert catalogue: %w", err)
	}

	seen := map[string]bool{}
	for _, a := range doc.Alerts {
		if !a.Area.Valid() {
			return nil, fmt.Errorf("alert %s has unknown area %q", a.ID, a.Area)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("duplicate alert id %s", a.ID)
		}
		seen[a.ID] = true
	}
	return &AlertCatalogue{alerts: doc.Alerts}, nil
}

// Visible returns the alerts whose area the user is subscribed to.
func (c *AlertCatalogue) Visible(settings models.NotificationSettings) []models.LegislativeAlert {
	out := make([]models.LegislativeAlert, 0, len(c.alerts))
	for _, a := range c.alerts {
		if settings[a.Area] {
			out = append(out, a)
		}
	}
	return out
}

func (c *AlertCatalogue) UnreadCount(settings models.NotificationSettings) int {
	n := 0
	for _, a := range c.alerts {
		if a.IsNew && settings[a.Area] {
			n++
		}
	}
	return n
}
