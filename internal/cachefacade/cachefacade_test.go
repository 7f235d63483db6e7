package cachefacade

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/tsmarvin/tunebridge/internal/aggregator"
	"github.com/tsmarvin/tunebridge/internal/cacheindex"
	"github.com/tsmarvin/tunebridge/internal/database"
	"github.com/tsmarvin/tunebridge/internal/objectstore"
	"github.com/tsmarvin/tunebridge/internal/provider"
	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAdapter struct {
	name  tbcore.ProviderId
	onURL func(ctx context.Context, link string) (*tbcore.ProviderResult, error)
	calls int
}

func (f *fakeAdapter) Name() tbcore.ProviderId                     { return f.name }
func (f *fakeAdapter) SupportsIdentifier(_ tbcore.EntityKind) bool { return false }

func (f *fakeAdapter) ByISRC(context.Context, string) (*tbcore.ProviderResult, error) {
	return nil, nil
}
func (f *fakeAdapter) ByUPC(context.Context, string) (*tbcore.ProviderResult, error) {
	return nil, nil
}
func (f *fakeAdapter) ByTitleArtist(context.Context, string, string) (*tbcore.ProviderResult, error) {
	return nil, nil
}
func (f *fakeAdapter) Parse(context.Context, string) (provider.ParsedLink, bool) {
	return provider.ParsedLink{}, false
}
func (f *fakeAdapter) ByURL(ctx context.Context, link string) (*tbcore.ProviderResult, error) {
	f.calls++
	if f.onURL == nil {
		return nil, nil
	}
	return f.onURL(ctx, link)
}

func newTestFacade(t *testing.T, apple *fakeAdapter) (*Facade, *cacheindex.Index, *objectstore.LocalStore) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating database: %v", err)
	}

	index := cacheindex.New(db)
	store := objectstore.NewLocalStore(db)

	reg := provider.NewRegistry()
	reg.Register(apple)
	agg := aggregator.New(reg, testLogger())

	return New(agg, index, store, 14, testLogger()), index, store
}

func trackResult(link string) *tbcore.ProviderResult {
	r := &tbcore.ProviderResult{
		Provider:   tbcore.AppleMusic,
		Title:      "Bohemian Rhapsody",
		Artist:     "Queen",
		URL:        link,
		ExternalID: "GBUM71029604",
		IsAlbum:    tbcore.BoolPtr(false),
		IsPrimary:  true,
	}
	return r
}

func drain(ch <-chan *tbcore.UnifiedResult, timeout time.Duration) []*tbcore.UnifiedResult {
	var out []*tbcore.UnifiedResult
	deadline := time.After(timeout)
	for {
		select {
		case ur, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ur)
		case <-deadline:
			return out
		}
	}
}

func TestLookupByTextMissCreatesCacheEntry(t *testing.T) {
	link := "https://music.apple.com/us/song/x/1"
	apple := &fakeAdapter{
		name: tbcore.AppleMusic,
		onURL: func(_ context.Context, l string) (*tbcore.ProviderResult, error) {
			if l != link {
				return nil, nil
			}
			return trackResult(link), nil
		},
	}
	facade, index, _ := newTestFacade(t, apple)

	results := drain(facade.LookupByText(context.Background(), link), 2*time.Second)
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if apple.calls != 1 {
		t.Errorf("expected exactly one provider call, got %d", apple.calls)
	}

	entry, ok, err := index.Get(context.Background(), cacheindex.NormalizeLink(link))
	if err != nil || !ok {
		t.Fatalf("expected a cache index row, ok=%v err=%v", ok, err)
	}
	if entry.Pointer == "" {
		t.Error("expected a non-empty pointer")
	}
}

func TestLookupByTextFreshHitSkipsProvider(t *testing.T) {
	link := "https://music.apple.com/us/song/x/1"
	apple := &fakeAdapter{
		name: tbcore.AppleMusic,
		onURL: func(_ context.Context, l string) (*tbcore.ProviderResult, error) {
			return trackResult(link), nil
		},
	}
	facade, _, _ := newTestFacade(t, apple)
	ctx := context.Background()

	first := drain(facade.LookupByText(ctx, link), 2*time.Second)
	if len(first) != 1 {
		t.Fatalf("expected one result from the first lookup, got %d", len(first))
	}
	if apple.calls != 1 {
		t.Fatalf("expected one provider call after the first lookup, got %d", apple.calls)
	}

	second := drain(facade.LookupByText(ctx, link), 2*time.Second)
	if len(second) != 1 {
		t.Fatalf("expected one result from the cached lookup, got %d", len(second))
	}
	if apple.calls != 1 {
		t.Errorf("expected the fresh cache hit to skip the provider, got %d calls", apple.calls)
	}
}

func TestLookupByTextStaleHitRefreshesInPlace(t *testing.T) {
	link := "https://music.apple.com/us/song/x/1"
	apple := &fakeAdapter{
		name: tbcore.AppleMusic,
		onURL: func(_ context.Context, l string) (*tbcore.ProviderResult, error) {
			return trackResult(link), nil
		},
	}
	facade, index, _ := newTestFacade(t, apple)
	facade.window = -1 * time.Second // force every hit to read as stale
	ctx := context.Background()

	first := drain(facade.LookupByText(ctx, link), 2*time.Second)
	if len(first) != 1 {
		t.Fatalf("expected one result from the first lookup, got %d", len(first))
	}
	entryBefore, ok, err := index.Get(ctx, cacheindex.NormalizeLink(link))
	if err != nil || !ok {
		t.Fatalf("expected a cache row after the first lookup, ok=%v err=%v", ok, err)
	}
	pointerBefore := entryBefore.Pointer

	second := drain(facade.LookupByText(ctx, link), 2*time.Second)
	if len(second) != 1 {
		t.Fatalf("expected one result from the stale refresh, got %d", len(second))
	}
	if apple.calls != 2 {
		t.Errorf("expected a fresh provider call on the stale hit, got %d calls", apple.calls)
	}

	entryAfter, ok, err := index.Get(ctx, cacheindex.NormalizeLink(link))
	if err != nil || !ok {
		t.Fatalf("expected the cache row to survive the refresh, ok=%v err=%v", ok, err)
	}
	if entryAfter.Pointer != pointerBefore {
		t.Errorf("expected the stale refresh to update the same pointer, got %q want %q", entryAfter.Pointer, pointerBefore)
	}
}

func TestLookupByTitleArtistBypassesCache(t *testing.T) {
	apple := &fakeAdapter{name: tbcore.AppleMusic}
	facade, _, _ := newTestFacade(t, apple)
	ur, err := facade.LookupByTitleArtist(context.Background(), "Bohemian Rhapsody", "Queen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ur != nil {
		t.Errorf("expected no match from a provider with no ByTitleArtist handler, got %+v", ur)
	}
}
