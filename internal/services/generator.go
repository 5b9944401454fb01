package services

import (
	"context"

	"lexconsul-backend/internal/models"
)

// Part is one piece of a turn: either TextPart or InlinePart.
type Part interface {
	isPart()
}

type TextPart string

// InlinePart carries binary content (an image, a PDF) with its MIME type.
type InlinePart struct {
	MIMEType string
	Data     []byte
}

func (TextPart) isPart()   {}
func (InlinePart) isPart() {}

type Turn struct {
	Role  models.Role
	Parts []Part
}

type SchemaType string

const (
	SchemaObject SchemaType = "object"
	SchemaArray  SchemaType = "array"
	SchemaString SchemaType = "string"
)

// ResponseSchema asks the model for JSON output of a fixed shape.
type ResponseSchema struct {
	Type       SchemaType
	Items      *ResponseSchema
	Properties map[string]*ResponseSchema
	Required   []string
}

type GenerateRequest struct {
	Model             string
	SystemInstruction string
	Turns             []Turn
	Temperature       float32
	Grounded          bool
	Schema            *ResponseSchema
}

// GenerateResult.Sources is nil when the model returned no citations.
type GenerateResult struct {
	Text    string
	Sources []models.Source
}

// Generator is the boundary to the remote generative model.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}
