// Package aggregator implements cross-provider fan-out: turning a partial
// match from one provider into a UnifiedResult covering every configured
// provider, for both free-form text/URL input (streaming, parallel-first)
// and identifier/title input (sequential registered-order-first).
package aggregator

import (
	"context"
	"log/slog"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tsmarvin/tunebridge/internal/provider"
	"github.com/tsmarvin/tunebridge/internal/sanitize"
	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// streamBuffer is intentionally small: the channel exerts backpressure on
// the producer once a consumer falls behind, per the bounded-output
// requirement for bulk text lookups.
const streamBuffer = 1

// Aggregator orchestrates the Provider Lookup fan-out described in
// spec.md §4.5. It holds no cache state of its own — the Cache Facade
// wraps it one-way.
type Aggregator struct {
	registry *provider.Registry
	logger   *slog.Logger
}

// New creates an Aggregator over the given provider registry.
func New(registry *provider.Registry, logger *slog.Logger) *Aggregator {
	return &Aggregator{registry: registry, logger: logger}
}

type linkTuple struct {
	link     string
	provider tbcore.ProviderId
	result   *tbcore.ProviderResult
}

// ExtractLinks returns every link substring found in text, in order. The
// Cache Facade uses this same extraction to consult the Cache Index before
// deciding which links need a fresh lookup.
func ExtractLinks(text string) []string {
	return extractLinks(text)
}

// LookupByText extracts every link from free-form text, resolves each
// against every configured provider in parallel, and streams one
// UnifiedResult per distinct entity as soon as its fan-out completes. The
// returned channel is closed when every link has been processed or ctx is
// canceled.
func (a *Aggregator) LookupByText(ctx context.Context, text string) <-chan *tbcore.UnifiedResult {
	return a.LookupLinks(ctx, extractLinks(text))
}

// LookupLinks runs the same parallel-first fan-out as LookupByText over an
// already-extracted link list. The Cache Facade calls this directly with
// only the links that missed or went stale in its index, rather than
// handing back the whole input text.
func (a *Aggregator) LookupLinks(ctx context.Context, links []string) <-chan *tbcore.UnifiedResult {
	out := make(chan *tbcore.UnifiedResult, streamBuffer)

	go func() {
		defer close(out)
		if len(links) == 0 {
			return
		}
		a.streamLinks(ctx, links, out)
	}()

	return out
}

func (a *Aggregator) streamLinks(ctx context.Context, links []string, out chan<- *tbcore.UnifiedResult) {
	tuples := a.fanOutByURL(ctx, links)

	byLink := make(map[string]linkTuple, len(links))
	for _, t := range tuples {
		if _, exists := byLink[t.link]; !exists {
			byLink[t.link] = t
		}
	}

	var emitted []*tbcore.UnifiedResult
	var errs error

	for _, link := range links {
		primary, ok := byLink[link]
		if !ok {
			continue // no provider recognized this link; it yields nothing
		}

		if existing := findDuplicate(emitted, primary.provider, primary.result); existing != nil {
			existing.AddLink(link)
			continue
		}

		ur := tbcore.NewUnifiedResult()
		ur.AddLink(link)
		ur.Set(*primary.result)

		attachBatchMatches(ur, tuples, primary)

		if err := a.fillRemaining(ctx, ur); err != nil {
			errs = multierr.Append(errs, err)
		}

		emitted = append(emitted, ur)

		select {
		case out <- ur:
		case <-ctx.Done():
			return
		}
	}

	if errs != nil {
		a.logger.Warn("text lookup completed with suppressed provider errors", "error", errs)
	}
}

// fanOutByURL calls every configured provider's ByURL for every link, in
// parallel, bounded by providers × min(links, 8), per the concurrency
// model's default cap.
func (a *Aggregator) fanOutByURL(ctx context.Context, links []string) []linkTuple {
	adapters := a.registry.All()
	limit := len(adapters) * minInt(len(links), 8)
	if limit < 1 {
		limit = 1
	}

	type job struct {
		link string
		ad   provider.Adapter
	}
	jobs := make([]job, 0, len(links)*len(adapters))
	for _, link := range links {
		for _, ad := range adapters {
			jobs = append(jobs, job{link: link, ad: ad})
		}
	}

	results := make([]linkTuple, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			res, err := j.ad.ByURL(gctx, j.link)
			if err != nil {
				a.logger.Warn("provider lookup failed, suppressing", "provider", j.ad.Name(), "error", err)
				return nil
			}
			if res != nil {
				results[i] = linkTuple{link: j.link, provider: j.ad.Name(), result: res}
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]linkTuple, 0, len(jobs))
	for _, r := range results {
		if r.result != nil {
			out = append(out, r)
		}
	}
	return out
}

// attachBatchMatches scans every other-provider tuple from the same batch
// and attaches the first one matching ur's primary entry by externalId or
// sanitized (title, artist) equality.
func attachBatchMatches(ur *tbcore.UnifiedResult, tuples []linkTuple, primary linkTuple) {
	attached := map[tbcore.ProviderId]bool{primary.provider: true}
	for _, t := range tuples {
		if attached[t.provider] {
			continue
		}
		if matches(primary.result, t.result) {
			t.result.IsPrimary = false
			ur.Set(*t.result)
			attached[t.provider] = true
		}
	}
}

func matches(a, b *tbcore.ProviderResult) bool {
	if a.ExternalID != "" && b.ExternalID != "" {
		return a.ExternalID == b.ExternalID
	}
	return sanitize.EqualArtists(a.Artist, b.Artist) && titleMatches(a, b)
}

func titleMatches(a, b *tbcore.ProviderResult) bool {
	if a.IsAlbumBool() || b.IsAlbumBool() {
		return sanitize.EqualAlbumTitles(a.Title, b.Title)
	}
	return sanitize.EqualSongTitles(a.Title, b.Title)
}

// fillRemaining calls every configured provider not already present in ur
// with its best-available identifier lookup, falling back to
// byTitleArtist, and attaches any non-empty result. Bounded concurrency,
// suppressed per-provider failures aggregated into one log line.
func (a *Aggregator) fillRemaining(ctx context.Context, ur *tbcore.UnifiedResult) error {
	primary, ok := ur.Primary()
	if !ok {
		return nil
	}

	adapters := a.registry.Others(primary.Provider)
	missing := make([]provider.Adapter, 0, len(adapters))
	for _, ad := range adapters {
		if !ur.Has(ad.Name()) {
			missing = append(missing, ad)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	results := make([]*tbcore.ProviderResult, len(missing))
	errs := make([]error, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(minInt(len(missing), 8))

	for i, ad := range missing {
		i, ad := i, ad
		g.Go(func() error {
			res, err := a.fetchBestAvailable(gctx, ad, primary)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		if res != nil {
			ur.Set(*res)
		}
	}
	return multierr.Combine(errs...)
}

func (a *Aggregator) fetchBestAvailable(ctx context.Context, ad provider.Adapter, primary tbcore.ProviderResult) (*tbcore.ProviderResult, error) {
	if primary.ExternalID != "" && primary.IsAlbum != nil {
		if *primary.IsAlbum && ad.SupportsIdentifier(tbcore.Album) {
			if res, err := ad.ByUPC(ctx, primary.ExternalID); err == nil && res != nil {
				return res, nil
			} else if err != nil {
				return nil, err
			}
		} else if !*primary.IsAlbum && ad.SupportsIdentifier(tbcore.Track) {
			if res, err := ad.ByISRC(ctx, primary.ExternalID); err == nil && res != nil {
				return res, nil
			} else if err != nil {
				return nil, err
			}
		}
	}
	return ad.ByTitleArtist(ctx, primary.Title, primary.Artist)
}

func findDuplicate(emitted []*tbcore.UnifiedResult, p tbcore.ProviderId, r *tbcore.ProviderResult) *tbcore.UnifiedResult {
	for _, ur := range emitted {
		if existing, ok := ur.Entries[p]; ok && existing.Equal(*r) {
			return ur
		}
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// LookupByTitleArtist queries configured providers in registered order
// until one answers, wraps that as the primary entry, then fills every
// other provider.
func (a *Aggregator) LookupByTitleArtist(ctx context.Context, title, artist string) (*tbcore.UnifiedResult, error) {
	return a.lookupSequential(ctx, func(ad provider.Adapter) (*tbcore.ProviderResult, error) {
		return ad.ByTitleArtist(ctx, title, artist)
	})
}

// LookupByISRC queries configured providers in registered order until one
// answers by ISRC, wraps that as the primary entry, then fills every other
// provider by the same ISRC.
func (a *Aggregator) LookupByISRC(ctx context.Context, isrc string) (*tbcore.UnifiedResult, error) {
	return a.lookupSequential(ctx, func(ad provider.Adapter) (*tbcore.ProviderResult, error) {
		if !ad.SupportsIdentifier(tbcore.Track) {
			return nil, nil
		}
		return ad.ByISRC(ctx, isrc)
	})
}

// LookupByUPC queries configured providers in registered order until one
// answers by UPC, wraps that as the primary entry, then fills every other
// provider by the same UPC.
func (a *Aggregator) LookupByUPC(ctx context.Context, upc string) (*tbcore.UnifiedResult, error) {
	return a.lookupSequential(ctx, func(ad provider.Adapter) (*tbcore.ProviderResult, error) {
		if !ad.SupportsIdentifier(tbcore.Album) {
			return nil, nil
		}
		return ad.ByUPC(ctx, upc)
	})
}

func (a *Aggregator) lookupSequential(ctx context.Context, try func(provider.Adapter) (*tbcore.ProviderResult, error)) (*tbcore.UnifiedResult, error) {
	var primary *tbcore.ProviderResult
	var primaryProvider tbcore.ProviderId

	for _, ad := range a.registry.All() {
		res, err := try(ad)
		if err != nil {
			a.logger.Warn("provider lookup failed, suppressing", "provider", ad.Name(), "error", err)
			continue
		}
		if res != nil {
			primary = res
			primaryProvider = ad.Name()
			break
		}
	}
	if primary == nil {
		return nil, nil
	}
	primary.IsPrimary = true

	ur := tbcore.NewUnifiedResult()
	ur.Set(*primary)

	if err := a.fillRemaining(ctx, ur); err != nil {
		a.logger.Warn("identifier lookup completed with suppressed provider errors", "provider", primaryProvider, "error", err)
	}

	return ur, nil
}
