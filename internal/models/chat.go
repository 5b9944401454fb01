package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch Role(s) {
	case RoleUser, RoleModel:
		*r = Role(s)
		return nil
	}
	return fmt.Errorf("invalid role %q", s)
}

// MessageStatus is cosmetic; it always resolves to "sent" before a reload matters.
type MessageStatus string

const (
	StatusSending MessageStatus = "sending"
	StatusSent    MessageStatus = "sent"
)

// Source is a web citation returned alongside a grounded answer.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// ChatMessage represents a single turn in a transcript.
// Sources is nil (and omitted) when the model returned no citations.
type ChatMessage struct {
	Role    Role          `json:"role"`
	Content string        `json:"content"`
	Image   string        `json:"image,omitempty"` // data URI
	Status  MessageStatus `json:"status,omitempty"`
	Sources []Source      `json:"sources,omitempty"`
}

// ImagePayload splits a data URI ("data:image/png;base64,....") into its MIME type
// and base64 body. A bare base64 string is assumed to be JPEG.
func ImagePayload(dataURI string) (mimeType, base64Data string) {
	if !strings.HasPrefix(dataURI, "data:") {
		return "image/jpeg", dataURI
	}
	header, body, ok := strings.Cut(dataURI, ",")
	if !ok {
		return "image/jpeg", ""
	}
	mimeType = strings.TrimPrefix(header, "data:")
	mimeType, _, _ = strings.Cut(mimeType, ";")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return mimeType, body
}

// SendMessageRequest is the payload sent to the chat endpoint.
type SendMessageRequest struct {
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

// TranscriptResponse describes one chat surface.
type TranscriptResponse struct {
	Specialty Specialty     `json:"specialty"`
	Messages  []ChatMessage `json:"messages"`
	Phase     string        `json:"phase"`
	Saved     bool          `json:"saved"`
}
