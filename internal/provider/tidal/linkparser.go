package tidal

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/tsmarvin/tunebridge/internal/provider"
	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// canonicalPath matches tidal.com/track/{id}, tidal.com/album/{id}, and the
// /browse/ prefixed variant the mobile app links use.
var canonicalPath = regexp.MustCompile(`(?i)^tidal\.com(?:/browse)?/(track|album)/(\d+)$`)

var shortLinkHost = regexp.MustCompile(`(?i)^tidal\.link$`)

// Parse recognizes tidal.com track/album URLs directly, and resolves
// tidal.link short links by following a single redirect hop.
func (a *Adapter) Parse(ctx context.Context, link string) (provider.ParsedLink, bool) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(link), "https://"), "http://")
	trimmed = strings.TrimSuffix(trimmed, "/")

	u, err := url.Parse("https://" + trimmed)
	if err != nil {
		return provider.ParsedLink{}, false
	}

	if shortLinkHost.MatchString(u.Host) {
		target, ok := a.resolveShortLink(ctx, "https://"+trimmed)
		if !ok {
			return provider.ParsedLink{}, false
		}
		return a.Parse(ctx, target)
	}

	m := canonicalPath.FindStringSubmatch(u.Host + u.Path)
	if m == nil {
		return provider.ParsedLink{}, false
	}

	kind := tbcore.Album
	if strings.EqualFold(m[1], "track") {
		kind = tbcore.Track
	}
	return provider.ParsedLink{Kind: kind, Key: m[2], Market: u.Query().Get("countryCode")}, true
}

func (a *Adapter) resolveShortLink(ctx context.Context, shortURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, shortURL, nil)
	if err != nil {
		return "", false
	}
	resp, err := a.redirectClient.Do(req)
	if err != nil {
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return "", false
		}
		return loc, true
	default:
		return "", false
	}
}
