// Package applemusic implements the Apple Music Provider Lookup and Link
// Parser against the Apple Music Catalog API.
package applemusic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tsmarvin/tunebridge/internal/provider"
	"github.com/tsmarvin/tunebridge/internal/sanitize"
	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

const defaultBaseURL = "https://api.music.apple.com/v1/catalog"
const defaultStorefront = "us"

// tokenSource mints the developer token this adapter attaches as a bearer
// credential. Satisfied by *token.AppleSource in production and a stub in
// tests.
type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Adapter implements provider.Adapter against the Apple Music Catalog API.
type Adapter struct {
	client  *http.Client
	tokens  tokenSource
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates an Apple Music adapter using the default catalog base URL.
func New(tokens tokenSource, limiter *provider.RateLimiterMap, client *http.Client, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(tokens, limiter, client, logger, defaultBaseURL)
}

// NewWithBaseURL creates an Apple Music adapter against a custom catalog
// base URL, for pointing at an httptest fixture server.
func NewWithBaseURL(tokens tokenSource, limiter *provider.RateLimiterMap, client *http.Client, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  client,
		tokens:  tokens,
		limiter: limiter,
		logger:  logger.With(slog.String("provider", string(tbcore.AppleMusic))),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns this adapter's ProviderId.
func (a *Adapter) Name() tbcore.ProviderId { return tbcore.AppleMusic }

// SupportsIdentifier reports that both tracks and albums resolve by
// identifier against the catalog API.
func (a *Adapter) SupportsIdentifier(kind tbcore.EntityKind) bool {
	return kind == tbcore.Track || kind == tbcore.Album
}

func storefront(market string) string {
	if market == "" {
		return defaultStorefront
	}
	return market
}

// ByURL delegates to the Link Parser, then dispatches to the matching
// identifier fetch and marks the result primary.
func (a *Adapter) ByURL(ctx context.Context, link string) (*tbcore.ProviderResult, error) {
	parsed, ok := a.Parse(ctx, link)
	if !ok {
		return nil, nil
	}

	var res *tbcore.ProviderResult
	var err error
	switch parsed.Kind {
	case tbcore.Track:
		res, err = a.byTrackId(ctx, storefront(parsed.Market), parsed.Key)
	case tbcore.Album:
		res, err = a.byAlbumId(ctx, storefront(parsed.Market), parsed.Key)
	default:
		return nil, nil
	}
	if err != nil || res == nil {
		return res, err
	}
	res.IsPrimary = true
	return res, nil
}

// ByISRC looks up a track by ISRC in the default storefront.
func (a *Adapter) ByISRC(ctx context.Context, isrc string) (*tbcore.ProviderResult, error) {
	if err := a.limiter.Wait(ctx, tbcore.AppleMusic); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s/%s/songs?filter[isrc]=%s", a.baseURL, defaultStorefront, url.QueryEscape(isrc))
	var resp resourceList
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return a.suppressOrReturn(err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return a.toResult(resp.Data[0], false), nil
}

// ByUPC looks up an album by UPC in the default storefront.
func (a *Adapter) ByUPC(ctx context.Context, upc string) (*tbcore.ProviderResult, error) {
	if err := a.limiter.Wait(ctx, tbcore.AppleMusic); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s/%s/albums?filter[upc]=%s", a.baseURL, defaultStorefront, url.QueryEscape(upc))
	var resp resourceList
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return a.suppressOrReturn(err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return a.toResult(resp.Data[0], true), nil
}

// ByTitleArtist runs the artist→album→track cascade.
func (a *Adapter) ByTitleArtist(ctx context.Context, title, artist string) (*tbcore.ProviderResult, error) {
	artists, err := a.searchArtists(ctx, artist)
	if err != nil {
		return nil, err
	}
	for _, artistId := range artists {
		albums, err := a.artistAlbums(ctx, artistId)
		if err != nil {
			continue
		}
		for _, album := range albums {
			if sanitize.EqualAlbumTitles(album.Attributes.Name, title) {
				res, err := a.byAlbumId(ctx, defaultStorefront, album.Id)
				if err == nil && res != nil {
					res.IsAlbum = tbcore.BoolPtr(true)
					return res, nil
				}
			}
		}
		for _, album := range albums {
			tracks, err := a.albumTracks(ctx, album.Id)
			if err != nil {
				continue
			}
			for _, track := range tracks {
				if sanitize.EqualSongTitles(track.Attributes.Name, title) {
					res, err := a.byTrackId(ctx, defaultStorefront, track.Id)
					if err == nil && res != nil {
						res.IsAlbum = tbcore.BoolPtr(false)
						return res, nil
					}
				}
			}
		}
	}
	return nil, nil
}

func (a *Adapter) searchArtists(ctx context.Context, artist string) ([]string, error) {
	if err := a.limiter.Wait(ctx, tbcore.AppleMusic); err != nil {
		return nil, err
	}
	q := url.Values{"term": {artist}, "types": {"artists"}, "limit": {"5"}}
	reqURL := fmt.Sprintf("%s/%s/search?%s", a.baseURL, defaultStorefront, q.Encode())
	var resp searchResponse
	if err := a.get(ctx, reqURL, &resp); err != nil {
		if _, suppressed := a.suppressOrReturn(err); suppressed == nil {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(resp.Results.Artists.Data))
	for _, r := range resp.Results.Artists.Data {
		ids = append(ids, r.Id)
	}
	return ids, nil
}

func (a *Adapter) artistAlbums(ctx context.Context, artistId string) ([]resource, error) {
	if err := a.limiter.Wait(ctx, tbcore.AppleMusic); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s/%s/artists/%s/albums", a.baseURL, defaultStorefront, url.PathEscape(artistId))
	var resp resourceList
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (a *Adapter) albumTracks(ctx context.Context, albumId string) ([]resource, error) {
	if err := a.limiter.Wait(ctx, tbcore.AppleMusic); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s/%s/albums/%s/tracks", a.baseURL, defaultStorefront, url.PathEscape(albumId))
	var resp resourceList
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (a *Adapter) byAlbumId(ctx context.Context, market, albumId string) (*tbcore.ProviderResult, error) {
	if err := a.limiter.Wait(ctx, tbcore.AppleMusic); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s/%s/albums/%s", a.baseURL, storefront(market), url.PathEscape(albumId))
	var resp resourceList
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return a.suppressOrReturn(err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return a.toResult(resp.Data[0], true), nil
}

func (a *Adapter) byTrackId(ctx context.Context, market, trackId string) (*tbcore.ProviderResult, error) {
	if err := a.limiter.Wait(ctx, tbcore.AppleMusic); err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s/%s/songs/%s", a.baseURL, storefront(market), url.PathEscape(trackId))
	var resp resourceList
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return a.suppressOrReturn(err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return a.toResult(resp.Data[0], false), nil
}

func (a *Adapter) toResult(r resource, isAlbum bool) *tbcore.ProviderResult {
	ext := r.Attributes.Isrc
	if isAlbum {
		ext = r.Attributes.Upc
	}
	var art string
	if r.Attributes.Artwork != nil {
		art = r.Attributes.Artwork.resolved()
	}
	return &tbcore.ProviderResult{
		Provider:   tbcore.AppleMusic,
		Artist:     r.Attributes.ArtistName,
		Title:      r.Attributes.Name,
		URL:        r.Attributes.Url,
		ExternalID: ext,
		ArtURL:     art,
		IsAlbum:    tbcore.BoolPtr(isAlbum),
	}
}

func (a *Adapter) get(ctx context.Context, reqURL string, out any) error {
	bearer, err := a.tokens.Token(ctx)
	if err != nil {
		return err
	}
	return provider.DecodeJSON(ctx, a.client, tbcore.AppleMusic, reqURL, bearer, out)
}

// suppressOrReturn converts a transient remote failure into a logged,
// suppressed empty result, per the "never propagate transport errors"
// contract; malformed-response and auth errors still propagate since they
// indicate a configuration problem worth surfacing.
func (a *Adapter) suppressOrReturn(err error) (*tbcore.ProviderResult, error) {
	var unavailable *tbcore.ErrProviderUnavailable
	if errors.As(err, &unavailable) {
		a.logger.Warn("provider unavailable, suppressing", "error", err)
		return nil, nil
	}
	if errors.Is(err, tbcore.ErrNotFound) {
		return nil, nil
	}
	return nil, err
}
