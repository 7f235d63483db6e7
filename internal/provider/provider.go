// Package provider defines the capability contract every music-catalog
// adapter implements (Link Parser + Provider Lookup) and the registry that
// holds them, plus shared helpers (rate limiting, JSON fetching) so
// individual adapters stay free functions rather than a base class.
package provider

import (
	"context"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// ParsedLink is the result of recognizing a provider URL: its entity kind,
// an opaque provider-specific key, and an optional storefront/market code.
type ParsedLink struct {
	Kind   tbcore.EntityKind
	Key    string
	Market string
}

// LinkParser recognizes a single provider's URL shapes. Parse is total: it
// returns ok=false for any input it does not own and never panics on
// malformed input.
type LinkParser interface {
	Parse(ctx context.Context, link string) (parsed ParsedLink, ok bool)
}

// Lookup is the four-entry-point contract every Provider Lookup adapter
// implements. All methods return (nil, nil) for "not found" or any
// recoverable remote failure — transport errors are logged and suppressed
// inside the adapter, never propagated to callers.
type Lookup interface {
	Name() tbcore.ProviderId

	// SupportsIdentifier reports whether this provider can resolve the
	// given entity kind by external identifier (ISRC for tracks, UPC for
	// albums) without a network probe — a static capability.
	SupportsIdentifier(kind tbcore.EntityKind) bool

	ByURL(ctx context.Context, link string) (*tbcore.ProviderResult, error)
	ByISRC(ctx context.Context, isrc string) (*tbcore.ProviderResult, error)
	ByUPC(ctx context.Context, upc string) (*tbcore.ProviderResult, error)
	ByTitleArtist(ctx context.Context, title, artist string) (*tbcore.ProviderResult, error)
}

// Adapter bundles a Lookup with its LinkParser — the byUrl entry point
// delegates to the same provider's parser to obtain (kind, key, market)
// before dispatching to a by-ID fetch.
type Adapter interface {
	Lookup
	LinkParser
}
