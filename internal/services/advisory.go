package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"lexconsul-backend/internal/models"
)

type AdvisoryConfig struct {
	ChatModel    string
	SuggestModel string
	Timeout      time.Duration
}

// Reply is the outcome of a conversational call. Fallback is set when Text is
// a canned message rather than generated content.
type Reply struct {
	Text     string
	Sources  []models.Source
	Fallback bool
}

type Analysis struct {
	Text     string
	Fallback bool
}

// AdvisoryService never returns errors: every failure is folded into a
// user-facing fallback.
type AdvisoryService struct {
	gen Generator
	cfg AdvisoryConfig
}

func NewAdvisoryService(gen Generator, cfg AdvisoryConfig) *AdvisoryService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &AdvisoryService{gen: gen, cfg: cfg}
}

func (s *AdvisoryService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Converse sends the prior transcript plus a new user turn tagged with the
// specialty. image is an optional data URI.
func (s *AdvisoryService) Converse(ctx context.Context, specialty models.Specialty, prompt string, history []models.ChatMessage, image string) Reply {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	turns := make([]Turn, 0, len(history)+1)
	for _, msg := range history {
		parts := messageParts(msg.Content, msg.Image)
		if len(parts) == 0 {
			continue
		}
		turns = append(turns, Turn{Role: msg.Role, Parts: parts})
	}

	current := []Part{TextPart(buildConversePrompt(specialty, prompt))}
	if img, ok := imagePart(image); ok {
		current = append(current, img)
	}
	turns = append(turns, Turn{Role: models.RoleUser, Parts: current})

	res, err := s.gen.Generate(ctx, GenerateRequest{
		Model:             s.cfg.ChatModel,
		SystemInstruction: systemInstruction,
		Turns:             turns,
		Temperature:       0.7,
		Grounded:          true,
	})
	if err != nil {
		if isCancellation(err) || ctx.Err() != nil {
			log.Printf("advisory: converse (%s) cancelled: %v", specialty, err)
			return Reply{Text: MsgCancelled, Fallback: true}
		}
		log.Printf("advisory: converse (%s) failed: %v", specialty, err)
		return Reply{Text: MsgConverseFailed, Fallback: true}
	}

	reply := Reply{Text: res.Text}
	if strings.TrimSpace(res.Text) == "" {
		reply.Text, reply.Fallback = MsgEmptyReply, true
	}
	if len(res.Sources) > 0 {
		reply.Sources = res.Sources
	}
	return reply
}

// Analyze runs the fixed analytical prompt over pasted text or a binary document.
func (s *AdvisoryService) Analyze(ctx context.Context, in models.AnalysisInput, docType models.DocumentType) Analysis {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var document Part
	if in.IsPlainText {
		document = TextPart(analysisTextHeader + in.Text)
	} else {
		document = InlinePart{MIMEType: in.MIMEType, Data: in.Data}
	}

	res, err := s.gen.Generate(ctx, GenerateRequest{
		Model:             s.cfg.ChatModel,
		SystemInstruction: systemInstruction,
		Turns: []Turn{{
			Role:  models.RoleUser,
			Parts: []Part{TextPart(buildAnalysisPrompt(docType)), document},
		}},
		Temperature: 0.2,
	})
	if err != nil {
		log.Printf("advisory: analysis (%s) failed: %v", docType, err)
		return Analysis{Text: MsgAnalysisFailed, Fallback: true}
	}
	if strings.TrimSpace(res.Text) == "" {
		return Analysis{Text: MsgEmptyAnalysis, Fallback: true}
	}
	return Analysis{Text: res.Text}
}

// Suggest returns up to five tagged search refinements, or an empty slice on
// any failure.
func (s *AdvisoryService) Suggest(ctx context.Context, partial string, history []string) []string {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.gen.Generate(ctx, GenerateRequest{
		Model: s.cfg.SuggestModel,
		Turns: []Turn{{
			Role:  models.RoleUser,
			Parts: []Part{TextPart(buildSuggestPrompt(partial, history))},
		}},
		Schema: suggestionSchema,
	})
	if err != nil {
		log.Printf("advisory: suggestions failed: %v", err)
		return []string{}
	}

	var payload struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(res.Text), &payload); err != nil {
		log.Printf("advisory: suggestions payload not decodable: %v", err)
		return []string{}
	}

	out := make([]string, 0, suggestionCount)
	for _, sug := range payload.Suggestions {
		sug = strings.TrimSpace(sug)
		if sug == "" {
			continue
		}
		out = append(out, sug)
		if len(out) == suggestionCount {
			break
		}
	}
	return out
}

func messageParts(content, image string) []Part {
	var parts []Part
	if content != "" {
		parts = append(parts, TextPart(content))
	}
	if img, ok := imagePart(image); ok {
		parts = append(parts, img)
	}
	return parts
}

func imagePart(dataURI string) (InlinePart, bool) {
	if dataURI == "" {
		return InlinePart{}, false
	}
	mimeType, b64 := models.ImagePayload(dataURI)
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(data) == 0 {
		log.Printf("advisory: dropping undecodable image attachment: %v", err)
		return InlinePart{}, false
	}
	return InlinePart{MIMEType: mimeType, Data: data}, true
}
