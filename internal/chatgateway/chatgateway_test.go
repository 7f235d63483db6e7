package chatgateway

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/tsmarvin/tunebridge/internal/aggregator"
	"github.com/tsmarvin/tunebridge/internal/cachefacade"
	"github.com/tsmarvin/tunebridge/internal/cacheindex"
	"github.com/tsmarvin/tunebridge/internal/database"
	"github.com/tsmarvin/tunebridge/internal/objectstore"
	"github.com/tsmarvin/tunebridge/internal/provider"
	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

type fakeAdapter struct {
	name tbcore.ProviderId
}

func (f *fakeAdapter) Name() tbcore.ProviderId                   { return f.name }
func (f *fakeAdapter) SupportsIdentifier(tbcore.EntityKind) bool { return false }

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
func (f *fakeAdapter) ByURL(_ context.Context, link string) (*tbcore.ProviderResult, error) {
	return &tbcore.ProviderResult{
		Provider:   f.name,
		Title:      "Bohemian Rhapsody",
		Artist:     "Queen",
		URL:        link,
		ExternalID: "GBUM71029604",
		IsAlbum:    tbcore.BoolPtr(false),
		IsPrimary:  true,
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGateway(t *testing.T) *LoggingGateway {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating database: %v", err)
	}

	reg := provider.NewRegistry()
	reg.Register(&fakeAdapter{name: tbcore.AppleMusic})
	agg := aggregator.New(reg, testLogger())
	facade := cachefacade.New(agg, cacheindex.New(db), objectstore.NewLocalStore(db), 14, testLogger())

	return NewLoggingGateway(facade, testLogger())
}

func TestHandleMessageResolvesRecognizedLink(t *testing.T) {
	g := newTestGateway(t)
	err := g.HandleMessage(context.Background(), "general", "check this out https://music.apple.com/us/song/x/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandleMessageIgnoresPlainText(t *testing.T) {
	g := newTestGateway(t)
	err := g.HandleMessage(context.Background(), "general", "no links here")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
