package export

import (
	"strings"

	"lexconsul-backend/internal/models"
)

const defaultShareTitle = "LexConsul"

// SharePayload builds the body the client hands to the platform share sheet,
// or copies to the clipboard when sharing is unavailable.
func SharePayload(title, text, url string) (models.SharePayload, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.SharePayload{}, false
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultShareTitle
	}
	return models.SharePayload{Title: title, Text: text, URL: url}, true
}
