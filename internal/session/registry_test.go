package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lexconsul-backend/internal/database"
	"lexconsul-backend/internal/models"
	"lexconsul-backend/internal/repository"
)

// flakyKV fails the next n reads, then delegates.
type flakyKV struct {
	repository.KV
	mu    sync.Mutex
	fails int
}

func (k *flakyKV) failNext(n int) {
	k.mu.Lock()
	k.fails = n
	k.mu.Unlock()
}

func (k *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	k.mu.Lock()
	if k.fails > 0 {
		k.fails--
		k.mu.Unlock()
		return nil, errors.New("connection reset by peer")
	}
	k.mu.Unlock()
	return k.KV.Get(ctx, key)
}

var priorTurn = []models.ChatMessage{
	{Role: models.RoleUser, Content: "Q1", Status: models.StatusSent},
	{Role: models.RoleModel, Content: "R1"},
}

func TestRegistry_FailedReadIsNotCached(t *testing.T) {
	kv := &flakyKV{KV: repository.NewMemoryKV()}
	f := newFixtureWithKV(kv)
	ctx := context.Background()
	f.store.SaveTranscript(ctx, f.device, models.SpecialtyCivil, priorTurn)

	kv.failNext(1)
	if _, err := f.registry.Controller(ctx, f.device, models.SpecialtyCivil); !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	c := f.controller(models.SpecialtyCivil)
	if got := len(c.Snapshot(time.Now()).Messages); got != 2 {
		t.Fatalf("expected stored transcript on retry, got %d entries", got)
	}
	if _, err := c.Send(ctx, "Q2", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := len(loaded(f.store.LoadTranscript(ctx, f.device, models.SpecialtyCivil))); got != 4 {
		t.Fatalf("persisted transcript length = %d, want 4", got)
	}
}

func TestRegistry_CancelledRequestStillLoadsTranscript(t *testing.T) {
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	kv, err := repository.NewSQLiteKV(db)
	if err != nil {
		t.Fatalf("sqlite kv: %v", err)
	}
	defer kv.Close()

	f := newFixtureWithKV(kv)
	f.store.SaveTranscript(context.Background(), f.device, models.SpecialtyCivil, priorTurn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := f.registry.Controller(ctx, f.device, models.SpecialtyCivil)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	if _, err := c.Send(context.Background(), "Q2", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := len(loaded(f.store.LoadTranscript(context.Background(), f.device, models.SpecialtyCivil))); got != 4 {
		t.Fatalf("persisted transcript length = %d, want 4", got)
	}
}

func TestSaveConsultation_UnreadableListIsKept(t *testing.T) {
	kv := &flakyKV{KV: repository.NewMemoryKV()}
	f := newFixtureWithKV(kv)
	ctx := context.Background()
	existing := []models.SavedConsultation{{ID: 2, Query: "Q2"}, {ID: 1, Query: "Q1"}}
	f.store.SaveSavedConsultations(ctx, f.device, existing)
	c := seedTranscript(f, models.SpecialtyGeneral, priorTurn)

	kv.failNext(1)
	_, ok, err := c.SaveConsultation(ctx, time.Now())
	if ok || !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected failed save, got ok=%v err=%v", ok, err)
	}
	if c.Snapshot(time.Now()).Saved {
		t.Fatalf("acknowledgement must not show for a failed save")
	}
	if got := loaded(f.store.LoadSavedConsultations(ctx, f.device)); len(got) != 2 {
		t.Fatalf("saved list overwritten: %+v", got)
	}

	if _, ok, err := c.SaveConsultation(ctx, time.Now()); err != nil || !ok {
		t.Fatalf("retry: ok=%v err=%v", ok, err)
	}
	if got := loaded(f.store.LoadSavedConsultations(ctx, f.device)); len(got) != 3 {
		t.Fatalf("expected 3 saved consultations, got %d", len(got))
	}
}

func TestRegistry_SweepDropsIdleSurfaces(t *testing.T) {
	f := newFixture()
	now := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	f.registry.now = func() time.Time { return now }

	c := f.controller(models.SpecialtyLabor)
	c.Send(context.Background(), "Q", "")
	a := f.registry.Analysis(f.device)

	now = now.Add(10 * time.Minute)
	if n := f.registry.Sweep(30 * time.Minute); n != 0 {
		t.Fatalf("recently used surfaces dropped: %d", n)
	}

	now = now.Add(time.Hour)
	if n := f.registry.Sweep(30 * time.Minute); n != 2 {
		t.Fatalf("expected 2 idle surfaces dropped, got %d", n)
	}

	again := f.controller(models.SpecialtyLabor)
	if again == c {
		t.Fatalf("expected a fresh controller after sweep")
	}
	if got := len(again.Snapshot(now).Messages); got != 2 {
		t.Fatalf("expected transcript reloaded from store, got %d", got)
	}
	if f.registry.Analysis(f.device) == a {
		t.Fatalf("expected a fresh analysis surface after sweep")
	}
}

func TestRegistry_SweepKeepsBusySurfaces(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.registry.now = func() time.Time { return now }
	f.advisor.block = make(chan struct{})
	f.advisor.started = make(chan struct{}, 1)
	c := f.controller(models.SpecialtyHR)

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "Q", "")
		done <- err
	}()
	<-f.advisor.started

	now = now.Add(2 * time.Hour)
	if n := f.registry.Sweep(time.Minute); n != 0 {
		t.Fatalf("busy controller dropped")
	}

	// Closing the overlay still reaches the in-flight call.
	f.registry.CancelSurface(f.device, models.SpecialtyHR)
	if err := <-done; err != nil {
		t.Fatalf("send: %v", err)
	}
	if f.controller(models.SpecialtyHR) != c {
		t.Fatalf("expected the same controller after a busy sweep")
	}
}
