package objectstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tsmarvin/tunebridge/internal/database"
	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating database: %v", err)
	}
	return NewLocalStore(db)
}

func sampleResult() *tbcore.UnifiedResult {
	ur := tbcore.NewUnifiedResult()
	ur.LookedUpAt = "2026-01-01T00:00:00Z"
	r := tbcore.ProviderResult{
		Provider:   tbcore.AppleMusic,
		Artist:     "Queen",
		Title:      "Bohemian Rhapsody",
		URL:        "https://music.apple.com/us/song/x/1",
		ExternalID: "GBUM71029604",
		IsAlbum:    tbcore.BoolPtr(false),
		IsPrimary:  true,
	}
	ur.Set(r)
	ur.AddLink("music.apple.com/us/song/x/1")
	return ur
}

func TestLocalStoreCreateAndGet(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()
	ur := sampleResult()

	pointer, err := store.Create(ctx, ur)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, pointer)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected a record")
	}
	entry, ok := got.Entries[tbcore.AppleMusic]
	if !ok || entry.Title != "Bohemian Rhapsody" {
		t.Errorf("unexpected round-tripped entry: %+v", entry)
	}
	if len(got.Links) != 0 {
		t.Errorf("expected no links persisted to the object store, got %v", got.Links)
	}
}

func TestLocalStoreGetMissingPointerReturnsNil(t *testing.T) {
	store := newTestLocalStore(t)
	got, err := store.Get(context.Background(), "local://does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for a missing pointer, got %+v", got)
	}
}

func TestLocalStoreUpdateInPlace(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()
	ur := sampleResult()

	pointer, err := store.Create(ctx, ur)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated := sampleResult()
	updated.LookedUpAt = "2026-02-01T00:00:00Z"
	if err := store.UpdateInPlace(ctx, pointer, updated); err != nil {
		t.Fatalf("UpdateInPlace: %v", err)
	}

	got, err := store.Get(ctx, pointer)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LookedUpAt != "2026-02-01T00:00:00Z" {
		t.Errorf("expected updated timestamp, got %q", got.LookedUpAt)
	}
}

func TestLocalStoreUpdateInPlaceMissingPointerConflicts(t *testing.T) {
	store := newTestLocalStore(t)
	err := store.UpdateInPlace(context.Background(), "local://ghost", sampleResult())
	if err != tbcore.ErrObjectStoreConflict {
		t.Errorf("expected ErrObjectStoreConflict, got %v", err)
	}
}
