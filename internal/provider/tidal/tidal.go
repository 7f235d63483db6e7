// Package tidal implements the Tidal Provider Lookup and Link Parser
// against the Tidal Open API v2.
package tidal

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

const defaultBaseURL = "https://openapi.tidal.com/v2"
const defaultCountry = "US"

// tokenSource mints the bearer credential this adapter attaches to every
// request. Satisfied by *token.OAuthSource in production, a stub in tests.
type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Adapter implements provider.Adapter against the Tidal Open API.
type Adapter struct {
	client         *http.Client
	redirectClient *http.Client
	tokens         tokenSource
	limiter        *provider.RateLimiterMap
	logger         *slog.Logger
	baseURL        string
}

// New creates a Tidal adapter using the default Open API base URL.
func New(tokens tokenSource, limiter *provider.RateLimiterMap, client, redirectClient *http.Client, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(tokens, limiter, client, redirectClient, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Tidal adapter against a custom Open API base
// URL, for pointing at an httptest fixture server.
func NewWithBaseURL(tokens tokenSource, limiter *provider.RateLimiterMap, client, redirectClient *http.Client, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:         client,
		redirectClient: redirectClient,
		tokens:         tokens,
		limiter:        limiter,
		logger:         logger.With(slog.String("provider", string(tbcore.Tidal))),
		baseURL:        strings.TrimRight(baseURL, "/"),
	}
}

// Name returns this adapter's ProviderId.
func (a *Adapter) Name() tbcore.ProviderId { return tbcore.Tidal }

// SupportsIdentifier reports that both tracks and albums resolve by
// identifier against the Open API.
func (a *Adapter) SupportsIdentifier(kind tbcore.EntityKind) bool {
	return kind == tbcore.Track || kind == tbcore.Album
}

func country(market string) string {
	if market == "" {
		return defaultCountry
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
		res, err = a.byTrackId(ctx, country(parsed.Market), parsed.Key)
	case tbcore.Album:
		res, err = a.byAlbumId(ctx, country(parsed.Market), parsed.Key)
	default:
		return nil, nil
	}
	if err != nil || res == nil {
		return res, err
	}
	res.IsPrimary = true
	return res, nil
}

// ByISRC looks up a track by ISRC.
func (a *Adapter) ByISRC(ctx context.Context, isrc string) (*tbcore.ProviderResult, error) {
	reqURL := fmt.Sprintf("%s/tracks?countryCode=%s&filter[isrc]=%s", a.baseURL, defaultCountry, url.QueryEscape(isrc))
	var resp resourceCollection
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return a.suppressOrReturn(err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return a.toResult(resp.Data[0], false), nil
}

// ByUPC looks up an album by UPC/barcode.
func (a *Adapter) ByUPC(ctx context.Context, upc string) (*tbcore.ProviderResult, error) {
	reqURL := fmt.Sprintf("%s/albums?countryCode=%s&filter[barcodeId]=%s", a.baseURL, defaultCountry, url.QueryEscape(upc))
	var resp resourceCollection
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
	artistIds, err := a.searchArtists(ctx, artist)
	if err != nil {
		return nil, err
	}
	for _, artistId := range artistIds {
		albums, err := a.artistAlbums(ctx, artistId)
		if err != nil {
			continue
		}
		for _, album := range albums {
			if sanitize.EqualAlbumTitles(album.Attributes.Title, title) {
				if res, err := a.byAlbumId(ctx, defaultCountry, album.Id); err == nil && res != nil {
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
				if sanitize.EqualSongTitles(track.Attributes.Title, title) {
					if res, err := a.byTrackId(ctx, defaultCountry, track.Id); err == nil && res != nil {
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
	reqURL := fmt.Sprintf("%s/searchresults/%s?countryCode=%s&include=artists", a.baseURL, url.PathEscape(artist), defaultCountry)
	var resp resourceCollection
	if err := a.get(ctx, reqURL, &resp); err != nil {
		if _, suppressed := a.suppressOrReturn(err); suppressed == nil {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(resp.Data))
	for _, r := range resp.Data {
		ids = append(ids, r.Id)
	}
	return ids, nil
}

func (a *Adapter) artistAlbums(ctx context.Context, artistId string) ([]resourceObject, error) {
	reqURL := fmt.Sprintf("%s/artists/%s/relationships/albums?countryCode=%s", a.baseURL, url.PathEscape(artistId), defaultCountry)
	var resp resourceCollection
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (a *Adapter) albumTracks(ctx context.Context, albumId string) ([]resourceObject, error) {
	reqURL := fmt.Sprintf("%s/albums/%s/relationships/items?countryCode=%s", a.baseURL, url.PathEscape(albumId), defaultCountry)
	var resp resourceCollection
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (a *Adapter) byAlbumId(ctx context.Context, countryCode, albumId string) (*tbcore.ProviderResult, error) {
	reqURL := fmt.Sprintf("%s/albums/%s?countryCode=%s", a.baseURL, url.PathEscape(albumId), country(countryCode))
	var resp singleResource
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return a.suppressOrReturn(err)
	}
	if resp.Data.Id == "" {
		return nil, nil
	}
	return a.toResult(resp.Data, true), nil
}

func (a *Adapter) byTrackId(ctx context.Context, countryCode, trackId string) (*tbcore.ProviderResult, error) {
	reqURL := fmt.Sprintf("%s/tracks/%s?countryCode=%s", a.baseURL, url.PathEscape(trackId), country(countryCode))
	var resp singleResource
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return a.suppressOrReturn(err)
	}
	if resp.Data.Id == "" {
		return nil, nil
	}
	return a.toResult(resp.Data, false), nil
}

func (a *Adapter) toResult(r resourceObject, isAlbum bool) *tbcore.ProviderResult {
	ext := r.Attributes.Isrc
	if isAlbum {
		ext = r.Attributes.BarcodeId
	}
	return &tbcore.ProviderResult{
		Provider:     tbcore.Tidal,
		Artist:       r.Attributes.ArtistName,
		Title:        r.Attributes.Title,
		URL:          firstHref(r.Attributes.ExternalLinks),
		MarketRegion: defaultCountry,
		ExternalID:   ext,
		ArtURL:       firstHref(r.Attributes.ImageLinks),
		IsAlbum:      tbcore.BoolPtr(isAlbum),
	}
}

func (a *Adapter) get(ctx context.Context, reqURL string, out any) error {
	if err := a.limiter.Wait(ctx, tbcore.Tidal); err != nil {
		return err
	}
	bearer, err := a.tokens.Token(ctx)
	if err != nil {
		return err
	}
	return provider.DecodeJSON(ctx, a.client, tbcore.Tidal, reqURL, bearer, out)
}

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
