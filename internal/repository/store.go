package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"lexconsul-backend/internal/models"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
)

// ErrUnavailable wraps a failed backend read. Unlike absent or corrupt data it
// says nothing about what is stored, so callers must not write over the key.
var ErrUnavailable = errors.New("store unavailable")

// Store is the typed persistence adapter. Absent or corrupt blobs yield the
// namespace default; a failed read returns the default together with an error
// wrapping ErrUnavailable. Saves never report failure to the caller; errors are
// logged and dropped.
type Store struct {
	kv     KV
	sealer Sealer
	locks  keyLocks
}

func NewStore(kv KV, sealer Sealer) *Store {
	if sealer == nil {
		sealer = plainSealer{}
	}
	return &Store{kv: kv, sealer: sealer}
}

func (s *Store) Close() error {
	return s.kv.Close()
}

// load fills out and reports whether a usable value was found. The error is
// set only when the backend could not be read.
func (s *Store) load(ctx context.Context, key string, out interface{}) (bool, error) {
	// A dropped request must not turn into an empty read.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), readTimeout)
	defer cancel()

	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		log.Printf("store: read %s failed: %v", key, err)
		return false, fmt.Errorf("%w: read %s: %v", ErrUnavailable, key, err)
	}

	plain, err := s.sealer.Open(raw)
	if err != nil {
		log.Printf("store: open %s failed, using default: %v", key, err)
		return false, nil
	}
	if err := decodeEnvelope(plain, out); err != nil {
		log.Printf("store: decode %s failed, using default: %v", key, err)
		return false, nil
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, key string, value interface{}) {
	raw, err := encodeEnvelope(value)
	if err != nil {
		log.Printf("store: encode %s failed: %v", key, err)
		return
	}
	sealed, err := s.sealer.Seal(raw)
	if err != nil {
		log.Printf("store: seal %s failed: %v", key, err)
		return
	}

	// The write outlives a cancelled request.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := s.kv.Set(ctx, key, sealed); err != nil {
		log.Printf("store: write %s failed: %v", key, err)
	}
}

// LoadTranscript returns the stored transcript for one specialty, or an empty one.
// Messages left in "sending" are reported as sent.
func (s *Store) LoadTranscript(ctx context.Context, device uuid.UUID, sp models.Specialty) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	found, err := s.load(ctx, Key(device, NamespaceChat, string(sp)), &msgs)
	if !found || msgs == nil {
		return []models.ChatMessage{}, err
	}
	for i := range msgs {
		if msgs[i].Status == models.StatusSending {
			msgs[i].Status = models.StatusSent
		}
	}
	return msgs, nil
}

func (s *Store) SaveTranscript(ctx context.Context, device uuid.UUID, sp models.Specialty, msgs []models.ChatMessage) {
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	s.save(ctx, Key(device, NamespaceChat, string(sp)), msgs)
}

func (s *Store) LoadSavedConsultations(ctx context.Context, device uuid.UUID) ([]models.SavedConsultation, error) {
	var list []models.SavedConsultation
	found, err := s.load(ctx, Key(device, NamespaceSavedConsultations, ""), &list)
	if !found || list == nil {
		return []models.SavedConsultation{}, err
	}
	return capConsultations(list), nil
}

func (s *Store) SaveSavedConsultations(ctx context.Context, device uuid.UUID, list []models.SavedConsultation) {
	s.save(ctx, Key(device, NamespaceSavedConsultations, ""), capConsultations(list))
}

// UpdateSavedConsultations applies fn to the stored list under the device's
// lock. Nothing is written when the list cannot be read.
func (s *Store) UpdateSavedConsultations(ctx context.Context, device uuid.UUID, fn func([]models.SavedConsultation) []models.SavedConsultation) ([]models.SavedConsultation, error) {
	key := Key(device, NamespaceSavedConsultations, "")
	defer s.locks.lock(key)()

	list, err := s.LoadSavedConsultations(ctx, device)
	if err != nil {
		return nil, err
	}
	list = capConsultations(fn(list))
	s.save(ctx, key, list)
	return list, nil
}

func (s *Store) LoadSearchHistory(ctx context.Context, device uuid.UUID) ([]string, error) {
	var history []string
	found, err := s.load(ctx, Key(device, NamespaceSearchHistory, ""), &history)
	if !found {
		return []string{}, err
	}
	return normalizeHistory(history), nil
}

func (s *Store) SaveSearchHistory(ctx context.Context, device uuid.UUID, history []string) {
	s.save(ctx, Key(device, NamespaceSearchHistory, ""), normalizeHistory(history))
}

func (s *Store) UpdateSearchHistory(ctx context.Context, device uuid.UUID, fn func([]string) []string) ([]string, error) {
	key := Key(device, NamespaceSearchHistory, "")
	defer s.locks.lock(key)()

	history, err := s.LoadSearchHistory(ctx, device)
	if err != nil {
		return nil, err
	}
	history = normalizeHistory(fn(history))
	s.save(ctx, key, history)
	return history, nil
}

// LoadNotificationSettings always returns a total map.
func (s *Store) LoadNotificationSettings(ctx context.Context, device uuid.UUID) (models.NotificationSettings, error) {
	var stored map[string]bool
	found, err := s.load(ctx, Key(device, NamespaceNotificationPrefs, ""), &stored)
	if !found {
		return models.DefaultNotificationSettings(), err
	}
	return models.MergeNotificationSettings(stored), nil
}

func (s *Store) SaveNotificationSettings(ctx context.Context, device uuid.UUID, settings models.NotificationSettings) {
	s.save(ctx, Key(device, NamespaceNotificationPrefs, ""), settings)
}

func (s *Store) UpdateNotificationSettings(ctx context.Context, device uuid.UUID, fn func(models.NotificationSettings) models.NotificationSettings) (models.NotificationSettings, error) {
	key := Key(device, NamespaceNotificationPrefs, "")
	defer s.locks.lock(key)()

	settings, err := s.LoadNotificationSettings(ctx, device)
	if err != nil {
		return nil, err
	}
	settings = fn(settings)
	s.save(ctx, key, settings)
	return settings, nil
}

func (s *Store) LoadTheme(ctx context.Context, device uuid.UUID) (models.Theme, error) {
	var stored string
	found, err := s.load(ctx, Key(device, NamespaceTheme, ""), &stored)
	if !found {
		return models.ThemeLight, err
	}
	theme, perr := models.ParseTheme(stored)
	if perr != nil {
		log.Printf("store: theme %q for %s unrecognised, using light", stored, device)
		return models.ThemeLight, nil
	}
	return theme, nil
}

func (s *Store) SaveTheme(ctx context.Context, device uuid.UUID, theme models.Theme) {
	s.save(ctx, Key(device, NamespaceTheme, ""), theme)
}
