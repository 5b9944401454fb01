package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Specialty partitions transcripts and alert preferences. Wire values match the
// identifiers the mobile client stores.
type Specialty string

const (
	SpecialtyAccounting     Specialty = "CONTABILIDADE"
	SpecialtyLegal          Specialty = "ADVOCACIA"
	SpecialtyHR             Specialty = "RH"
	SpecialtyLabor          Specialty = "TRABALHISTA"
	SpecialtyCivil          Specialty = "CIVIL"
	SpecialtyConstitutional Specialty = "CONSTITUCIONAL"
	SpecialtyTaxReform      Specialty = "REFORMA_TRIBUTARIA"
	SpecialtyFiscalAuditor  Specialty = "AUDITOR_FISCAL"
	SpecialtyGeneral        Specialty = "GERAL"
)

var allSpecialties = []Specialty{
	SpecialtyAccounting,
	SpecialtyLegal,
	SpecialtyHR,
	SpecialtyLabor,
	SpecialtyCivil,
	SpecialtyConstitutional,
	SpecialtyTaxReform,
	SpecialtyFiscalAuditor,
	SpecialtyGeneral,
}

// AllSpecialties returns the nine specialties in display order.
func AllSpecialties() []Specialty {
	out := make([]Specialty, len(allSpecialties))
	copy(out, allSpecialties)
	return out
}

func ParseSpecialty(s string) (Specialty, error) {
	candidate := Specialty(strings.ToUpper(strings.TrimSpace(s)))
	for _, sp := range allSpecialties {
		if sp == candidate {
			return sp, nil
		}
	}
	return "", fmt.Errorf("unknown specialty %q", s)
}

func (s Specialty) Valid() bool {
	_, err := ParseSpecialty(string(s))
	return err == nil
}

func (s *Specialty) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseSpecialty(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// NotificationSettings maps every specialty to its "subscribed" flag.
// Values produced by this package are always total.
type NotificationSettings map[Specialty]bool

func DefaultNotificationSettings() NotificationSettings {
	settings := make(NotificationSettings, len(allSpecialties))
	for _, sp := range allSpecialties {
		settings[sp] = true
	}
	return settings
}

// MergeNotificationSettings overlays a possibly partial map onto the defaults.
// Unknown keys are dropped.
func MergeNotificationSettings(partial map[string]bool) NotificationSettings {
	settings := DefaultNotificationSettings()
	for key, enabled := range partial {
		sp, err := ParseSpecialty(key)
		if err != nil {
			continue
		}
		settings[sp] = enabled
	}
	return settings
}

// Toggle returns a copy with one specialty flipped.
func (n NotificationSettings) Toggle(s Specialty) NotificationSettings {
	out := DefaultNotificationSettings()
	for sp := range out {
		if v, ok := n[sp]; ok {
			out[sp] = v
		}
	}
	out[s] = !out[s]
	return out
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

type ToggleNotificationRequest struct {
	Specialty string `json:"specialty"`
}

type ThemeRequest struct {
	Theme string `json:"theme"`
}
