package services

import (
	"testing"

	"lexconsul-backend/internal/models"
)

func TestAlertCatalogue_Embedded(t *testing.T) {
	cat, err := NewAlertCatalogue()
	if err != nil {
		t.Fatalf("load catalogue: %v", err)
	}

	all := cat.Visible(models.DefaultNotificationSettings())
	if len(all) != 4 {
		t.Fatalf("expected 4 alerts, got %d", len(all))
	}
	if all[0].Area != models.SpecialtyTaxReform || all[1].ID != "5" {
		t.Fatalf("unexpected order: %+v", all)
	}
	if cat.UnreadCount(models.DefaultNotificationSettings()) != 4 {
		t.Fatalf("expected 4 unread with default settings")
	}
}

func TestAlertCatalogue_FiltersBySubscription(t *testing.T) {
	cat, err := NewAlertCatalogue()
	if err != nil {
		t.Fatalf("load catalogue: %v", err)
	}

	settings := models.DefaultNotificationSettings().Toggle(models.SpecialtyLabor)
	visible := cat.Visible(settings)
	if len(visible) != 3 {
		t.Fatalf("expected 3 visible alerts, got %d", len(visible))
	}
	for _, a := range visible {
		if a.Area == models.SpecialtyLabor {
			t.Fatalf("unsubscribed area leaked: %+v", a)
		}
	}
	if cat.UnreadCount(settings) != 3 {
		t.Fatalf("expected 3 unread, got %d", cat.UnreadCount(settings))
	}
}

func TestParseAlertCatalogue_RejectsBadData(t *testing.T) {
	tests := map[string]string{
		"unknown area": "[[alert]]\nid = \"1\"\narea = \"TAX\"\n",
		"duplicate id": "[[alert]]\nid = \"1\"\narea = \"RH\"\n[[alert]]\nid = \"1\"\narea = \"CIVIL\"\n",
		"bad toml":     "[[alert]\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parseAlertCatalogue(src); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
