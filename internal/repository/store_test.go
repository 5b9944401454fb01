package repository

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"lexconsul-backend/internal/database"
	"lexconsul-backend/internal/models"
)

type failingKV struct {
	getErr error
	setErr error
	sets   int
}

func (f *failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.getErr }
func (f *failingKV) Set(context.Context, string, []byte) error {
	f.sets++
	return f.setErr
}
func (f *failingKV) Close() error { return nil }

// flakyKV fails the next n reads, then delegates.
type flakyKV struct {
	KV
	mu    sync.Mutex
	fails int
}

func (f *flakyKV) failNext(n int) {
	f.mu.Lock()
	f.fails = n
	f.mu.Unlock()
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	f.mu.Unlock()
	return f.KV.Get(ctx, key)
}

func loaded[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func newMemoryStore(t *testing.T) (*Store, *MemoryKV) {
	t.Helper()
	kv := NewMemoryKV()
	return NewStore(kv, nil), kv
}

func TestKey_Format(t *testing.T) {
	device := uuid.MustParse("6f1c2a4e-9b0d-4d43-8a57-0b3e1f8c2d11")

	require.Equal(t, "lexconsul:6f1c2a4e-9b0d-4d43-8a57-0b3e1f8c2d11:chat:TRABALHISTA",
		Key(device, NamespaceChat, string(models.SpecialtyLabor)))
	require.Equal(t, "lexconsul:6f1c2a4e-9b0d-4d43-8a57-0b3e1f8c2d11:theme",
		Key(device, NamespaceTheme, ""))
}

func TestStore_DefaultsWhenAbsent(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()
	device := uuid.New()

	require.Empty(t, loaded(store.LoadTranscript(ctx, device, models.SpecialtyGeneral)))
	require.NotNil(t, loaded(store.LoadTranscript(ctx, device, models.SpecialtyGeneral)))
	require.Empty(t, loaded(store.LoadSavedConsultations(ctx, device)))
	require.Empty(t, loaded(store.LoadSearchHistory(ctx, device)))
	require.Equal(t, models.DefaultNotificationSettings(), loaded(store.LoadNotificationSettings(ctx, device)))
	require.Equal(t, models.ThemeLight, loaded(store.LoadTheme(ctx, device)))
}

func TestStore_RoundTrip(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()
	device := uuid.New()

	transcript := []models.ChatMessage{
		{Role: models.RoleUser, Content: "Q1", Status: models.StatusSent},
		{Role: models.RoleModel, Content: "R1", Sources: []models.Source{{URI: "https://planalto.gov.br", Title: "Planalto"}}},
	}
	store.SaveTranscript(ctx, device, models.SpecialtyCivil, transcript)
	require.Equal(t, transcript, loaded(store.LoadTranscript(ctx, device, models.SpecialtyCivil)))

	// Other specialties are separate partitions.
	require.Empty(t, loaded(store.LoadTranscript(ctx, device, models.SpecialtyHR)))

	settings := models.DefaultNotificationSettings().Toggle(models.SpecialtyHR)
	store.SaveNotificationSettings(ctx, device, settings)
	require.Equal(t, settings, loaded(store.LoadNotificationSettings(ctx, device)))

	store.SaveTheme(ctx, device, models.ThemeDark)
	require.Equal(t, models.ThemeDark, loaded(store.LoadTheme(ctx, device)))

	store.SaveSearchHistory(ctx, device, []string{"B", "A"})
	require.Equal(t, []string{"B", "A"}, loaded(store.LoadSearchHistory(ctx, device)))
}

func TestStore_CorruptValuesYieldDefaults(t *testing.T) {
	ctx := context.Background()
	device := uuid.New()

	corrupt := map[string][]byte{
		"not json":       []byte("{{{"),
		"no envelope":    []byte(`["A","B"]`),
		"future version": []byte(`{"v":99,"data":[]}`),
		"wrong type":     []byte(`{"v":1,"data":42}`),
		"unknown theme":  []byte(`{"v":1,"data":"sepia"}`),
		"empty":          {},
	}

	for name, raw := range corrupt {
		t.Run(name, func(t *testing.T) {
			store, kv := newMemoryStore(t)
			for _, ns := range []Namespace{NamespaceSavedConsultations, NamespaceSearchHistory, NamespaceNotificationPrefs, NamespaceTheme} {
				require.NoError(t, kv.Set(ctx, Key(device, ns, ""), raw))
			}
			require.NoError(t, kv.Set(ctx, Key(device, NamespaceChat, string(models.SpecialtyGeneral)), raw))

			require.Empty(t, loaded(store.LoadTranscript(ctx, device, models.SpecialtyGeneral)))
			require.Empty(t, loaded(store.LoadSavedConsultations(ctx, device)))
			require.Empty(t, loaded(store.LoadSearchHistory(ctx, device)))
			require.Len(t, loaded(store.LoadNotificationSettings(ctx, device)), 9)
			require.Equal(t, models.ThemeLight, loaded(store.LoadTheme(ctx, device)))
		})
	}
}

func TestStore_TranscriptWithUnknownRoleYieldsEmpty(t *testing.T) {
	store, kv := newMemoryStore(t)
	ctx := context.Background()
	device := uuid.New()

	require.NoError(t, kv.Set(ctx, Key(device, NamespaceChat, string(models.SpecialtyGeneral)),
		[]byte(`{"v":1,"data":[{"role":"system","content":"x"}]}`)))

	require.Empty(t, loaded(store.LoadTranscript(ctx, device, models.SpecialtyGeneral)))
}

func TestStore_PartialSettingsAreCompleted(t *testing.T) {
	store, kv := newMemoryStore(t)
	ctx := context.Background()
	device := uuid.New()

	require.NoError(t, kv.Set(ctx, Key(device, NamespaceNotificationPrefs, ""),
		[]byte(`{"v":1,"data":{"RH":false}}`)))

	settings := loaded(store.LoadNotificationSettings(ctx, device))
	require.Len(t, settings, 9)
	require.False(t, settings[models.SpecialtyHR])
	require.True(t, settings[models.SpecialtyGeneral])
}

func TestStore_SendingStatusResolvesOnLoad(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()
	device := uuid.New()

	store.SaveTranscript(ctx, device, models.SpecialtyGeneral, []models.ChatMessage{
		{Role: models.RoleUser, Content: "Q", Status: models.StatusSending},
	})
	got := loaded(store.LoadTranscript(ctx, device, models.SpecialtyGeneral))
	require.Equal(t, models.StatusSent, got[0].Status)
}

func TestStore_BoundsReappliedOnLoad(t *testing.T) {
	store, kv := newMemoryStore(t)
	ctx := context.Background()
	device := uuid.New()

	require.NoError(t, kv.Set(ctx, Key(device, NamespaceSearchHistory, ""),
		[]byte(`{"v":1,"data":["a","b","a","c","d","e","f","g","h","i"]}`)))

	history := loaded(store.LoadSearchHistory(ctx, device))
	require.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, history)
}

func TestStore_WriteFailuresAreSwallowed(t *testing.T) {
	kv := &failingKV{getErr: errors.New("connection reset"), setErr: errors.New("quota exceeded")}
	store := NewStore(kv, nil)
	ctx := context.Background()
	device := uuid.New()

	require.NotPanics(t, func() {
		store.SaveTranscript(ctx, device, models.SpecialtyGeneral, []models.ChatMessage{{Role: models.RoleUser, Content: "Q"}})
		store.SaveTheme(ctx, device, models.ThemeDark)
	})
	require.Equal(t, 2, kv.sets)
}

func TestStore_ReadFailureIsReported(t *testing.T) {
	kv := &failingKV{getErr: errors.New("connection reset")}
	store := NewStore(kv, nil)
	ctx := context.Background()
	device := uuid.New()

	transcript, err := store.LoadTranscript(ctx, device, models.SpecialtyGeneral)
	require.ErrorIs(t, err, ErrUnavailable)
	require.Empty(t, transcript)

	theme, err := store.LoadTheme(ctx, device)
	require.ErrorIs(t, err, ErrUnavailable)
	require.Equal(t, models.ThemeLight, theme)

	_, err = store.LoadNotificationSettings(ctx, device)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestStore_UpdateSkipsWriteWhenReadFails(t *testing.T) {
	kv := &flakyKV{KV: NewMemoryKV()}
	store := NewStore(kv, nil)
	ctx := context.Background()
	device := uuid.New()

	store.SaveSavedConsultations(ctx, device, []models.SavedConsultation{{ID: 2, Query: "Q2"}, {ID: 1, Query: "Q1"}})
	store.SaveSearchHistory(ctx, device, []string{"ICMS", "FGTS"})
	store.SaveNotificationSettings(ctx, device, models.DefaultNotificationSettings().Toggle(models.SpecialtyHR))

	kv.failNext(3)
	_, err := store.UpdateSavedConsultations(ctx, device, func(list []models.SavedConsultation) []models.SavedConsultation {
		return PrependConsultation(list, models.SavedConsultation{ID: 3, Query: "Q3"})
	})
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = store.UpdateSearchHistory(ctx, device, func(h []string) []string { return RecordSearch(h, "IRPF") })
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = store.UpdateNotificationSettings(ctx, device, func(n models.NotificationSettings) models.NotificationSettings {
		return n.Toggle(models.SpecialtyCivil)
	})
	require.ErrorIs(t, err, ErrUnavailable)

	require.Len(t, loaded(store.LoadSavedConsultations(ctx, device)), 2)
	require.Equal(t, []string{"ICMS", "FGTS"}, loaded(store.LoadSearchHistory(ctx, device)))
	settings := loaded(store.LoadNotificationSettings(ctx, device))
	require.False(t, settings[models.SpecialtyHR])
	require.True(t, settings[models.SpecialtyCivil])

	// Once the backend recovers the update applies on top of the stored list.
	list, err := store.UpdateSavedConsultations(ctx, device, func(list []models.SavedConsultation) []models.SavedConsultation {
		return PrependConsultation(list, models.SavedConsultation{ID: 3, Query: "Q3"})
	})
	require.NoError(t, err)
	require.Len(t, list, 3)
}

func TestStore_ConcurrentUpdatesAreSerialised(t *testing.T) {
	store, _ := newMemoryStore(t)
	ctx := context.Background()
	device := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.UpdateSearchHistory(ctx, device, func(h []string) []string {
				return RecordSearch(h, fmt.Sprintf("termo %d", i))
			})
			if err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, loaded(store.LoadSearchHistory(ctx, device)), 8)
	require.Zero(t, store.locks.len())
}

func TestStore_ReadSurvivesCancelledContext(t *testing.T) {
	store, _ := newMemoryStore(t)
	device := uuid.New()
	store.SaveTheme(context.Background(), device, models.ThemeDark)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	theme, err := store.LoadTheme(ctx, device)
	require.NoError(t, err)
	require.Equal(t, models.ThemeDark, theme)
}

func TestStore_WriteSurvivesCancelledContext(t *testing.T) {
	store, _ := newMemoryStore(t)
	device := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store.SaveTheme(ctx, device, models.ThemeDark)

	require.Equal(t, models.ThemeDark, loaded(store.LoadTheme(context.Background(), device)))
}

func TestStore_Sealed(t *testing.T) {
	key := hex.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	sealer, err := NewSealer(key)
	require.NoError(t, err)

	kv := NewMemoryKV()
	store := NewStore(kv, sealer)
	ctx := context.Background()
	device := uuid.New()

	store.SaveSearchHistory(ctx, device, []string{"ICMS interestadual"})

	raw, err := kv.Get(ctx, Key(device, NamespaceSearchHistory, ""))
	require.NoError(t, err)
	require.False(t, strings.Contains(string(raw), "ICMS"), "plaintext leaked into sealed blob")
	require.Equal(t, []string{"ICMS interestadual"}, loaded(store.LoadSearchHistory(ctx, device)))

	// A different key cannot open it and the load falls back to the default.
	other, err := NewSealer(hex.EncodeToString([]byte("fedcba9876543210fedcba9876543210")))
	require.NoError(t, err)
	require.Empty(t, loaded(NewStore(kv, other).LoadSearchHistory(ctx, device)))
}

func TestNewSealer_RejectsBadKeys(t *testing.T) {
	_, err := NewSealer("not-hex")
	require.Error(t, err)

	_, err = NewSealer(hex.EncodeToString([]byte("short")))
	require.Error(t, err)
}

func TestSQLiteKV_RoundTrip(t *testing.T) {
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)

	kv, err := NewSQLiteKV(db)
	require.NoError(t, err)
	defer kv.Close()

	ctx := context.Background()
	_, err = kv.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte("v1")))
	require.NoError(t, kv.Set(ctx, "k", []byte("v2")))

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)

	store := NewStore(kv, nil)
	device := uuid.New()
	store.SaveSavedConsultations(ctx, device, []models.SavedConsultation{{ID: 1, Specialty: models.SpecialtyCivil, Query: "Q", Response: "R"}})
	require.Len(t, loaded(store.LoadSavedConsultations(ctx, device)), 1)
}
