package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"lexconsul-backend/internal/models"
)

// Payloads above this size go through the File API instead of inline blobs.
const maxInlineBytes = 15 << 20

type GeminiGenerator struct {
	client   *genai.Client
	limiter  *rate.Limiter
	rateChan chan struct{} // Token bucket
}

func NewGeminiGenerator(apiKey string, concurrentReqs, requestsPerMinute int) (*GeminiGenerator, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Token bucket for concurrency
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}

	return &GeminiGenerator{
		client:   client,
		limiter:  rate.NewLimiter(limit, max(1, concurrentReqs)),
		rateChan: rateChan,
	}, nil
}

func (g *GeminiGenerator) Close() {
	g.client.Close()
}

// acquireRate blocks until a concurrency slot and a request token are available
func (g *GeminiGenerator) acquireRate(ctx context.Context) error {
	select {
	case <-g.rateChan:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		g.releaseRate()
		return fmt.Errorf("waiting for Gemini request token: %w", err)
	}
	return nil
}

func (g *GeminiGenerator) releaseRate() {
	g.rateChan <- struct{}{}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if len(req.Turns) == 0 {
		return nil, fmt.Errorf("generate request has no turns")
	}
	if err := g.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer g.releaseRate()

	model := g.client.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	// req.Grounded is not forwarded: this SDK version has no search tool to
	// attach. Sources come only from the candidate's citation metadata.
	if req.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemInstruction))
	}
	if req.Schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = toGenaiSchema(req.Schema)
	}

	var uploaded []string
	defer func() {
		for _, name := range uploaded {
			if err := g.client.DeleteFile(context.Background(), name); err != nil {
				log.Printf("gemini: failed to delete uploaded file %s: %v", name, err)
			}
		}
	}()

	contents := make([]*genai.Content, 0, len(req.Turns))
	for _, turn := range req.Turns {
		parts := make([]genai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			part, name, err := g.toGenaiPart(ctx, p)
			if err != nil {
				return nil, err
			}
			if name != "" {
				uploaded = append(uploaded, name)
			}
			parts = append(parts, part)
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: string(turn.Role), Parts: parts})
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("generate request has no content")
	}

	last := contents[len(contents)-1]
	session := model.StartChat()
	session.History = contents[:len(contents)-1]

	resp, err := session.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonUnspecified {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	return &GenerateResult{
		Text:    extractText(resp),
		Sources: extractSources(resp),
	}, nil
}

// toGenaiPart converts one part; large inline payloads are uploaded and the
// returned name must be deleted once the call completes.
func (g *GeminiGenerator) toGenaiPart(ctx context.Context, p Part) (genai.Part, string, error) {
	switch v := p.(type) {
	case TextPart:
		return genai.Text(string(v)), "", nil
	case InlinePart:
		if len(v.Data) <= maxInlineBytes {
			return genai.Blob{MIMEType: v.MIMEType, Data: v.Data}, "", nil
		}
		file, err := g.uploadFile(ctx, v)
		if err != nil {
			return nil, "", err
		}
		return genai.FileData{MIMEType: v.MIMEType, URI: file.URI}, file.Name, nil
	default:
		return nil, "", fmt.Errorf("unsupported part type %T", p)
	}
}

func (g *GeminiGenerator) uploadFile(ctx context.Context, p InlinePart) (*genai.File, error) {
	file, err := g.client.UploadFile(ctx, "", bytes.NewReader(p.Data), &genai.UploadFileOptions{
		DisplayName: "lexconsul-document",
		MIMEType:    p.MIMEType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload document to Gemini: %w", err)
	}

	// Wait until file is active
	for i := 0; i < 20; i++ {
		current, getErr := g.client.GetFile(ctx, file.Name)
		if getErr != nil {
			g.client.DeleteFile(context.Background(), file.Name)
			return nil, fmt.Errorf("failed to get uploaded file status: %w", getErr)
		}

		switch current.State {
		case genai.FileStateActive:
			return current, nil
		case genai.FileStateFailed:
			g.client.DeleteFile(context.Background(), file.Name)
			return nil, fmt.Errorf("Gemini failed to process uploaded document")
		}

		select {
		case <-ctx.Done():
			g.client.DeleteFile(context.Background(), file.Name)
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	g.client.DeleteFile(context.Background(), file.Name)
	return nil, fmt.Errorf("uploaded document did not become active in time")
}

func toGenaiSchema(s *ResponseSchema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{Required: s.Required}
	switch s.Type {
	case SchemaObject:
		out.Type = genai.TypeObject
	case SchemaArray:
		out.Type = genai.TypeArray
	case SchemaString:
		out.Type = genai.TypeString
	}
	out.Items = toGenaiSchema(s.Items)
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// extractSources collects cited URIs from the first candidate, in order and
// without duplicates. Returns nil when there are none.
func extractSources(resp *genai.GenerateContentResponse) []models.Source {
	if len(resp.Candidates) == 0 || resp.Candidates[0].CitationMetadata == nil {
		return nil
	}

	var sources []models.Source
	seen := map[string]bool{}
	for _, cs := range resp.Candidates[0].CitationMetadata.CitationSources {
		if cs == nil || cs.URI == nil || *cs.URI == "" || seen[*cs.URI] {
			continue
		}
		seen[*cs.URI] = true
		sources = append(sources, models.Source{URI: *cs.URI, Title: *cs.URI})
	}
	return sources
}
