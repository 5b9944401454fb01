package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseSpecialty(t *testing.T) {
	tests := []struct {
		input   string
		want    Specialty
		wantErr bool
	}{
		{"GERAL", SpecialtyGeneral, false},
		{"reforma_tributaria", SpecialtyTaxReform, false},
		{"  AUDITOR_FISCAL ", SpecialtyFiscalAuditor, false},
		{"TAX", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseSpecialty(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAllSpecialties_NineDistinct(t *testing.T) {
	all := AllSpecialties()
	if len(all) != 9 {
		t.Fatalf("expected 9 specialties, got %d", len(all))
	}
	seen := map[Specialty]bool{}
	for _, sp := range all {
		if seen[sp] {
			t.Fatalf("duplicate specialty %q", sp)
		}
		seen[sp] = true
	}

	// Callers must not be able to mutate the canonical order.
	all[0] = "BROKEN"
	if AllSpecialties()[0] == "BROKEN" {
		t.Fatalf("AllSpecialties leaked its backing array")
	}
}

func TestDefaultNotificationSettings_AllTrue(t *testing.T) {
	settings := DefaultNotificationSettings()
	if len(settings) != 9 {
		t.Fatalf("expected 9 keys, got %d", len(settings))
	}
	for sp, enabled := range settings {
		if !enabled {
			t.Fatalf("expected %s enabled by default", sp)
		}
	}
}

func TestNotificationSettings_ToggleKeepsOthers(t *testing.T) {
	for _, target := range AllSpecialties() {
		t.Run(string(target), func(t *testing.T) {
			before := DefaultNotificationSettings()
			before[SpecialtyCivil] = false

			after := before.Toggle(target)
			if len(after) != 9 {
				t.Fatalf("expected 9 keys after toggle, got %d", len(after))
			}
			if after[target] == before[target] {
				t.Fatalf("expected %s to flip", target)
			}
			for _, sp := range AllSpecialties() {
				if sp == target {
					continue
				}
				if after[sp] != before[sp] {
					t.Fatalf("toggle of %s changed %s", target, sp)
				}
			}
		})
	}
}

func TestNotificationSettings_ToggleRepairsPartialMap(t *testing.T) {
	partial := NotificationSettings{SpecialtyHR: false}
	after := partial.Toggle(SpecialtyHR)

	if len(after) != 9 {
		t.Fatalf("expected total map, got %d keys", len(after))
	}
	if !after[SpecialtyHR] {
		t.Fatalf("expected RH flipped to true")
	}
}

func TestMergeNotificationSettings_DropsUnknownKeys(t *testing.T) {
	merged := MergeNotificationSettings(map[string]bool{
		"TRABALHISTA": false,
		"NOPE":        false,
	})

	if len(merged) != 9 {
		t.Fatalf("expected 9 keys, got %d", len(merged))
	}
	if merged[SpecialtyLabor] {
		t.Fatalf("expected TRABALHISTA false after merge")
	}
	if !merged[SpecialtyGeneral] {
		t.Fatalf("expected GERAL to keep its default")
	}
}

func TestRole_RejectsUnknown(t *testing.T) {
	var msg ChatMessage
	err := json.Unmarshal([]byte(`{"role":"assistant","content":"hi"}`), &msg)
	if err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestChatMessage_SourcesOmittedWhenNil(t *testing.T) {
	b, err := json.Marshal(ChatMessage{Role: RoleModel, Content: "R1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "sources") {
		t.Fatalf("expected no sources field, got %s", b)
	}
}

func TestImagePayload(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMIME string
		wantData string
	}{
		{"png data uri", "data:image/png;base64,AAAA", "image/png", "AAAA"},
		{"bare base64", "BBBB", "image/jpeg", "BBBB"},
		{"missing comma", "data:image/png;base64", "image/jpeg", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mime, data := ImagePayload(tc.input)
			if mime != tc.wantMIME || data != tc.wantData {
				t.Errorf("Expected (%q, %q), got (%q, %q)", tc.wantMIME, tc.wantData, mime, data)
			}
		})
	}
}

func TestParseDocumentType(t *testing.T) {
	got, err := ParseDocumentType("holerite")
	if err != nil || got != DocumentPayslip {
		t.Fatalf("expected Holerite, got %q (%v)", got, err)
	}

	got, err = ParseDocumentType("")
	if err != nil || got != DocumentGeneral {
		t.Fatalf("expected blank to default to Geral, got %q (%v)", got, err)
	}

	if _, err := ParseDocumentType("Invoice"); err == nil {
		t.Fatalf("expected error for unknown document type")
	}
}
