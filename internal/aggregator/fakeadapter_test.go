package aggregator

import (
	"context"

	"github.com/tsmarvin/tunebridge/internal/provider"
	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// fakeAdapter is a minimal provider.Adapter stand-in for exercising the
// Aggregator's fan-out logic without any network fixtures.
type fakeAdapter struct {
	name            tbcore.ProviderId
	supportsTrack   bool
	supportsAlbum   bool
	onURL           func(ctx context.Context, link string) (*tbcore.ProviderResult, error)
	onISRC          func(ctx context.Context, isrc string) (*tbcore.ProviderResult, error)
	onUPC           func(ctx context.Context, upc string) (*tbcore.ProviderResult, error)
	onTitleArtist   func(ctx context.Context, title, artist string) (*tbcore.ProviderResult, error)
	onParse         func(ctx context.Context, link string) (provider.ParsedLink, bool)
}

func (f *fakeAdapter) Name() tbcore.ProviderId { return f.name }

func (f *fakeAdapter) SupportsIdentifier(kind tbcore.EntityKind) bool {
	switch kind {
	case tbcore.Track:
		return f.supportsTrack
	case tbcore.Album:
		return f.supportsAlbum
	default:
		return false
	}
}

func (f *fakeAdapter) ByURL(ctx context.Context, link string) (*tbcore.ProviderResult, error) {
	if f.onURL == nil {
		return nil, nil
	}
	return f.onURL(ctx, link)
}

func (f *fakeAdapter) ByISRC(ctx context.Context, isrc string) (*tbcore.ProviderResult, error) {
	if f.onISRC == nil {
		return nil, nil
	}
	return f.onISRC(ctx, isrc)
}

func (f *fakeAdapter) ByUPC(ctx context.Context, upc string) (*tbcore.ProviderResult, error) {
	if f.onUPC == nil {
		return nil, nil
	}
	return f.onUPC(ctx, upc)
}

func (f *fakeAdapter) ByTitleArtist(ctx context.Context, title, artist string) (*tbcore.ProviderResult, error) {
	if f.onTitleArtist == nil {
		return nil, nil
	}
	return f.onTitleArtist(ctx, title, artist)
}

func (f *fakeAdapter) Parse(ctx context.Context, link string) (provider.ParsedLink, bool) {
	if f.onParse == nil {
		return provider.ParsedLink{}, false
	}
	return f.onParse(ctx, link)
}

func result(p tbcore.ProviderId, title, artist, url, externalID string, isAlbum bool) *tbcore.ProviderResult {
	return &tbcore.ProviderResult{
		Provider:   p,
		Title:      title,
		Artist:     artist,
		URL:        url,
		ExternalID: externalID,
		IsAlbum:    tbcore.BoolPtr(isAlbum),
	}
}
