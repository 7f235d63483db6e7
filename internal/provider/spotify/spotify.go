// Package spotify implements the Spotify Provider Lookup and Link Parser
// against the Spotify Web API.
package spotify

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

const defaultBaseURL = "https://api.spotify.com/v1"

// tokenSource mints the bearer credential this adapter attaches to every
// request. Satisfied by *token.OAuthSource in production, a stub in tests.
type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Adapter implements provider.Adapter against the Spotify Web API.
type Adapter struct {
	client         *http.Client
	redirectClient *http.Client
	tokens         tokenSource
	limiter        *provider.RateLimiterMap
	logger         *slog.Logger
	baseURL        string
}

// New creates a Spotify adapter using the default Web API base URL.
// redirectClient must have redirect-following disabled
// (CheckRedirect returning http.ErrUseLastResponse) for short-link
// resolution to see the Location header.
func New(tokens tokenSource, limiter *provider.RateLimiterMap, client, redirectClient *http.Client, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(tokens, limiter, client, redirectClient, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Spotify adapter against a custom Web API base
// URL, for pointing at an httptest fixture server.
func NewWithBaseURL(tokens tokenSource, limiter *provider.RateLimiterMap, client, redirectClient *http.Client, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:         client,
		redirectClient: redirectClient,
		tokens:         tokens,
		limiter:        limiter,
		logger:         logger.With(slog.String("provider", string(tbcore.Spotify))),
		baseURL:        strings.TrimRight(baseURL, "/"),
	}
}

// Name returns this adapter's ProviderId.
func (a *Adapter) Name() tbcore.ProviderId { return tbcore.Spotify }

// SupportsIdentifier reports that both tracks and albums resolve by
// identifier against the Web API.
func (a *Adapter) SupportsIdentifier(kind tbcore.EntityKind) bool {
	return kind == tbcore.Track || kind == tbcore.Album
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
		res, err = a.byTrackId(ctx, parsed.Key)
	case tbcore.Album:
		res, err = a.byAlbumId(ctx, parsed.Key)
	default:
		return nil, nil
	}
	if err != nil || res == nil {
		return res, err
	}
	res.IsPrimary = true
	return res, nil
}

// ByISRC searches for a track by ISRC.
func (a *Adapter) ByISRC(ctx context.Context, isrc string) (*tbcore.ProviderResult, error) {
	q := url.Values{"q": {"isrc:" + isrc}, "type": {"track"}, "limit": {"1"}}
	var resp searchResponse
	if err := a.search(ctx, q, &resp); err != nil {
		return a.suppressOrReturn(err)
	}
	if len(resp.Tracks.Items) == 0 {
		return nil, nil
	}
	return a.trackResult(resp.Tracks.Items[0]), nil
}

// ByUPC searches for an album by UPC, then re-fetches it by id to retrieve
// the authoritative external_ids block the search endpoint sometimes omits.
func (a *Adapter) ByUPC(ctx context.Context, upc string) (*tbcore.ProviderResult, error) {
	q := url.Values{"q": {"upc:" + upc}, "type": {"album"}, "limit": {"1"}}
	var resp struct {
		Albums albumsPage `json:"albums"`
	}
	if err := a.search(ctx, q, &resp); err != nil {
		return a.suppressOrReturn(err)
	}
	if len(resp.Albums.Items) == 0 {
		return nil, nil
	}
	return a.byAlbumId(ctx, resp.Albums.Items[0].Id)
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
			if sanitize.EqualAlbumTitles(album.Name, title) {
				if res, err := a.byAlbumId(ctx, album.Id); err == nil && res != nil {
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
				if sanitize.EqualSongTitles(track.Name, title) {
					if res, err := a.byTrackId(ctx, track.Id); err == nil && res != nil {
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
	q := url.Values{"q": {artist}, "type": {"artist"}, "limit": {"5"}}
	var resp searchResponse
	if err := a.search(ctx, q, &resp); err != nil {
		if _, suppressed := a.suppressOrReturn(err); suppressed == nil {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(resp.Artists.Items))
	for _, item := range resp.Artists.Items {
		ids = append(ids, item.Id)
	}
	return ids, nil
}

func (a *Adapter) artistAlbums(ctx context.Context, artistId string) ([]albumObject, error) {
	reqURL := fmt.Sprintf("%s/artists/%s/albums?limit=50", a.baseURL, url.PathEscape(artistId))
	var resp albumsPage
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *Adapter) albumTracks(ctx context.Context, albumId string) ([]trackObject, error) {
	reqURL := fmt.Sprintf("%s/albums/%s/tracks?limit=50", a.baseURL, url.PathEscape(albumId))
	var resp tracksPage
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *Adapter) byAlbumId(ctx context.Context, albumId string) (*tbcore.ProviderResult, error) {
	reqURL := fmt.Sprintf("%s/albums/%s", a.baseURL, url.PathEscape(albumId))
	var resp albumObject
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return a.suppressOrReturn(err)
	}
	if resp.Id == "" {
		return nil, nil
	}
	return &tbcore.ProviderResult{
		Provider:   tbcore.Spotify,
		Artist:     joinArtists(resp.Artists),
		Title:      resp.Name,
		URL:        resp.ExternalUrls.Spotify,
		ExternalID: resp.ExternalIds.Upc,
		ArtURL:     firstImage(resp.Images),
		IsAlbum:    tbcore.BoolPtr(true),
	}, nil
}

func (a *Adapter) byTrackId(ctx context.Context, trackId string) (*tbcore.ProviderResult, error) {
	reqURL := fmt.Sprintf("%s/tracks/%s", a.baseURL, url.PathEscape(trackId))
	var resp trackObject
	if err := a.get(ctx, reqURL, &resp); err != nil {
		return a.suppressOrReturn(err)
	}
	if resp.Id == "" {
		return nil, nil
	}
	return a.trackResult(resp), nil
}

func (a *Adapter) trackResult(t trackObject) *tbcore.ProviderResult {
	return &tbcore.ProviderResult{
		Provider:   tbcore.Spotify,
		Artist:     joinArtists(t.Artists),
		Title:      t.Name,
		URL:        t.ExternalUrls.Spotify,
		ExternalID: t.ExternalIds.Isrc,
		ArtURL:     firstImage(t.Album.Images),
		IsAlbum:    tbcore.BoolPtr(false),
	}
}

func (a *Adapter) search(ctx context.Context, q url.Values, out any) error {
	reqURL := fmt.Sprintf("%s/search?%s", a.baseURL, q.Encode())
	return a.get(ctx, reqURL, out)
}

func (a *Adapter) get(ctx context.Context, reqURL string, out any) error {
	if err := a.limiter.Wait(ctx, tbcore.Spotify); err != nil {
		return err
	}
	bearer, err := a.tokens.Token(ctx)
	if err != nil {
		return err
	}
	return provider.DecodeJSON(ctx, a.client, tbcore.Spotify, reqURL, bearer, out)
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
