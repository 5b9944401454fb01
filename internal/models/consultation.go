package models

// SavedConsultation is a bookmarked question/answer pair. It is never mutated
// after creation.
type SavedConsultation struct {
	ID        int64     `json:"id"` // creation time, unix milliseconds
	Specialty Specialty `json:"specialty"`
	Date      string    `json:"date"` // dd/mm/yyyy
	Query     string    `json:"query"`
	Response  string    `json:"response"`
}

type SaveConsultationResponse struct {
	Saved        bool               `json:"saved"`
	Consultation *SavedConsultation `json:"consultation,omitempty"`
}

// LegislativeAlert is a statically defined notice.
type LegislativeAlert struct {
	ID          string    `json:"id" toml:"id"`
	Area        Specialty `json:"area" toml:"area"`
	Title       string    `json:"title" toml:"title"`
	Description string    `json:"description" toml:"description"`
	Date        string    `json:"date" toml:"date"`
	IsNew       bool      `json:"is_new" toml:"is_new"`
}

type AlertsResponse struct {
	Alerts      []LegislativeAlert `json:"alerts"`
	UnreadCount int                `json:"unread_count"`
}

type SearchRequest struct {
	Term string `json:"term"`
}

type SearchResponse struct {
	Term    string   `json:"term"`
	History []string `json:"history"`
}

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}
