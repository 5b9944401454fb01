package repository

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"lexconsul-backend/internal/models"
)

const (
	MaxSavedConsultations = 50
	MaxSearchHistory      = 8
)

// PrependConsultation puts c at the head and evicts the oldest entries past the cap.
func PrependConsultation(list []models.SavedConsultation, c models.SavedConsultation) []models.SavedConsultation {
	out := make([]models.SavedConsultation, 0, min(len(list)+1, MaxSavedConsultations))
	out = append(out, c)
	for _, existing := range list {
		if len(out) == MaxSavedConsultations {
			break
		}
		out = append(out, existing)
	}
	return out
}

// RecordSearch moves term to the front of history. Terms are compared after NFC
// normalisation so "ação" typed two different ways is one entry.
func RecordSearch(history []string, term string) []string {
	term = norm.NFC.String(strings.TrimSpace(term))
	if term == "" {
		return normalizeHistory(history)
	}
	return normalizeHistory(append([]string{term}, history...))
}

// normalizeHistory dedupes (first occurrence wins), drops blanks and caps.
func normalizeHistory(history []string) []string {
	out := make([]string, 0, MaxSearchHistory)
	seen := make(map[string]bool, len(history))
	for _, h := range history {
		h = norm.NFC.String(strings.TrimSpace(h))
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
		if len(out) == MaxSearchHistory {
			break
		}
	}
	return out
}

func capConsultations(list []models.SavedConsultation) []models.SavedConsultation {
	if len(list) > MaxSavedConsultations {
		return list[:MaxSavedConsultations]
	}
	return list
}
