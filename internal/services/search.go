package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"lexconsul-backend/internal/repository"
)

var searchTagPrefix = regexp.MustCompile(`^\[.*?\]\s*`)

// CleanSearchTerm drops a leading "[Área] " tag added to suggestions.
func CleanSearchTerm(term string) string {
	return strings.TrimSpace(searchTagPrefix.ReplaceAllString(strings.TrimSpace(term), ""))
}

type SearchStore interface {
	LoadSearchHistory(ctx context.Context, device uuid.UUID) ([]string, error)
	UpdateSearchHistory(ctx context.Context, device uuid.UUID, fn func([]string) []string) ([]string, error)
}

type Suggester interface {
	Suggest(ctx context.Context, partial string, history []string) []string
}

type SearchService struct {
	store     SearchStore
	suggester Suggester
}

func NewSearchService(store SearchStore, suggester Suggester) *SearchService {
	return &SearchService{store: store, suggester: suggester}
}

// Record cleans term and moves it to the head of the device's history.
func (s *SearchService) Record(ctx context.Context, device uuid.UUID, term string) (string, []string, error) {
	clean := CleanSearchTerm(term)
	if clean == "" {
		return "", nil, &ValidationError{Fields: map[string]string{"term": "Search term is required"}}
	}

	history, err := s.store.UpdateSearchHistory(ctx, device, func(h []string) []string {
		return repository.RecordSearch(h, clean)
	})
	if err != nil {
		return "", nil, err
	}
	return history[0], history, nil
}

func (s *SearchService) History(ctx context.Context, device uuid.UUID) ([]string, error) {
	return s.store.LoadSearchHistory(ctx, device)
}

// Suggestions asks the advisory model for refinements. Offline devices and
// blank queries get an empty list without a remote call.
func (s *SearchService) Suggestions(ctx context.Context, device uuid.UUID, partial string, online bool) []string {
	partial = strings.TrimSpace(partial)
	if !online || partial == "" {
		return []string{}
	}
	// History only steers the prompt; an unreadable one is sent empty.
	history, _ := s.store.LoadSearchHistory(ctx, device)
	return s.suggester.Suggest(ctx, partial, history)
}

var _ Suggester = (*AdvisoryService)(nil)
