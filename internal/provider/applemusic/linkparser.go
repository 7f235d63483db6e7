package applemusic

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/tsmarvin/tunebridge/internal/provider"
	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// albumOrSongPath matches music.apple.com/{storefront}/album/{slug}/{id}
// and the storefront-less /album/{slug}/{id} shape some regions omit.
var albumOrSongPath = regexp.MustCompile(`(?i)^music\.apple\.com(?:/([a-z]{2}))?/album/[^/]+/(\d+)$`)

// Parse recognizes Apple Music album and song URLs. An embedded track link
// (?i=<songId> on an album URL) outranks its containing album, per the
// parser's tie-break rule.
func (a *Adapter) Parse(_ context.Context, link string) (provider.ParsedLink, bool) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(link), "https://"), "http://")
	trimmed = strings.TrimSuffix(trimmed, "/")

	u, err := url.Parse("https://" + trimmed)
	if err != nil {
		return provider.ParsedLink{}, false
	}

	m := albumOrSongPath.FindStringSubmatch(u.Host + u.Path)
	if m == nil {
		return provider.ParsedLink{}, false
	}
	market := strings.ToLower(m[1])
	albumId := m[2]

	if songId := u.Query().Get("i"); songId != "" {
		return provider.ParsedLink{Kind: tbcore.Track, Key: songId, Market: market}, true
	}
	return provider.ParsedLink{Kind: tbcore.Album, Key: albumId, Market: market}, true
}
