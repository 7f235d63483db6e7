// Package cachefacade wraps the Aggregator one-way with a keyed
// read-through/write-through cache for the text-input path: the Cache
// Index maps normalized links to Object Store pointers, with freshness
// windowed by CacheDays. Identifier- and title-input lookups have no
// stable link key and bypass the cache entirely.
package cachefacade

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tsmarvin/tunebridge/internal/aggregator"
	"github.com/tsmarvin/tunebridge/internal/cacheindex"
	"github.com/tsmarvin/tunebridge/internal/objectstore"
	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

const streamBuffer = 1

// Facade is the cached entry point upstream collaborators (the HTTP
// controller, a future chat gateway) call instead of the Aggregator
// directly.
type Facade struct {
	aggregator *aggregator.Aggregator
	index      *cacheindex.Index
	store      objectstore.Store
	window     time.Duration
	logger     *slog.Logger
}

// New builds a Facade with a freshness window of cacheDays.
func New(agg *aggregator.Aggregator, index *cacheindex.Index, store objectstore.Store, cacheDays int, logger *slog.Logger) *Facade {
	return &Facade{
		aggregator: agg,
		index:      index,
		store:      store,
		window:     time.Duration(cacheDays) * 24 * time.Hour,
		logger:     logger,
	}
}

// LookupByTitleArtist, LookupByISRC, and LookupByUPC have no stable link
// key to cache against, so they pass straight through to the Aggregator.
func (f *Facade) LookupByTitleArtist(ctx context.Context, title, artist string) (*tbcore.UnifiedResult, error) {
	return f.aggregator.LookupByTitleArtist(ctx, title, artist)
}

func (f *Facade) LookupByISRC(ctx context.Context, isrc string) (*tbcore.UnifiedResult, error) {
	return f.aggregator.LookupByISRC(ctx, isrc)
}

func (f *Facade) LookupByUPC(ctx context.Context, upc string) (*tbcore.UnifiedResult, error) {
	return f.aggregator.LookupByUPC(ctx, upc)
}

// staleSlot tracks a stale Cache Index hit: the existing pointer and every
// raw link from this batch observed to map to it, pending either an
// update-in-place or a conflict-driven fresh create.
type staleSlot struct {
	pointer  tbcore.CachePointer
	rawLinks []string
}

// LookupByText is the cached text-input entry point: fresh Cache Index
// hits are served from the Object Store without touching the Aggregator;
// misses and stale hits feed a bounded Aggregator fan-out whose results
// are written back through the Index and Object Store as they arrive.
func (f *Facade) LookupByText(ctx context.Context, text string) <-chan *tbcore.UnifiedResult {
	out := make(chan *tbcore.UnifiedResult, streamBuffer)
	rawLinks := aggregator.ExtractLinks(text)

	go func() {
		defer close(out)
		if len(rawLinks) == 0 {
			return
		}
		f.run(ctx, rawLinks, out)
	}()

	return out
}

func (f *Facade) run(ctx context.Context, rawLinks []string, out chan<- *tbcore.UnifiedResult) {
	freshLinks := make([]string, 0, len(rawLinks))
	seenFresh := make(map[string]bool, len(rawLinks))
	staleSlots := make(map[tbcore.CachePointer]*staleSlot)
	normalizedToPointer := make(map[string]tbcore.CachePointer)

	for _, raw := range rawLinks {
		norm := cacheindex.NormalizeLink(raw)

		entry, ok, err := f.index.Get(ctx, norm)
		if err != nil {
			f.logger.Warn("cache index unavailable, treating as a miss", "error", err)
			ok = false
		}

		switch {
		case !ok:
			if !seenFresh[norm] {
				seenFresh[norm] = true
				freshLinks = append(freshLinks, raw)
			}

		case f.isFresh(entry):
			ur, err := f.store.Get(ctx, entry.Pointer)
			if err != nil {
				f.logger.Warn("object store unavailable, treating as a miss", "pointer", entry.Pointer, "error", err)
				if !seenFresh[norm] {
					seenFresh[norm] = true
					freshLinks = append(freshLinks, raw)
				}
				continue
			}
			if ur == nil {
				_ = f.index.RemovePointer(ctx, entry.Pointer)
				if !seenFresh[norm] {
					seenFresh[norm] = true
					freshLinks = append(freshLinks, raw)
				}
				continue
			}
			ur.AddLink(raw)
			if !f.emit(ctx, ur, out) {
				return
			}

		default: // hit, stale
			slot, exists := staleSlots[entry.Pointer]
			if !exists {
				slot = &staleSlot{pointer: entry.Pointer}
				staleSlots[entry.Pointer] = slot
				if !seenFresh[norm] {
					seenFresh[norm] = true
					freshLinks = append(freshLinks, raw) // one representative link per stale slot
				}
			}
			slot.rawLinks = append(slot.rawLinks, raw)
			normalizedToPointer[norm] = entry.Pointer
		}
	}

	if len(freshLinks) == 0 {
		return
	}

	for ur := range f.aggregator.LookupLinks(ctx, freshLinks) {
		f.commit(ctx, ur, staleSlots, normalizedToPointer)
		if !f.emit(ctx, ur, out) {
			return
		}
	}
}

func (f *Facade) emit(ctx context.Context, ur *tbcore.UnifiedResult, out chan<- *tbcore.UnifiedResult) bool {
	select {
	case out <- ur:
		return true
	case <-ctx.Done():
		return false
	}
}

func (f *Facade) commit(ctx context.Context, ur *tbcore.UnifiedResult, staleSlots map[tbcore.CachePointer]*staleSlot, normalizedToPointer map[string]tbcore.CachePointer) {
	now := nowUTC()
	ur.LookedUpAt = now

	var matched *staleSlot
	for _, link := range ur.Links {
		if pointer, ok := normalizedToPointer[cacheindex.NormalizeLink(link)]; ok {
			matched = staleSlots[pointer]
			break
		}
	}

	if matched == nil {
		f.createNew(ctx, ur, now)
		return
	}

	if err := f.store.UpdateInPlace(ctx, matched.pointer, ur); err != nil {
		if errors.Is(err, tbcore.ErrObjectStoreConflict) {
			_ = f.index.RemovePointer(ctx, matched.pointer)
			delete(staleSlots, matched.pointer)
			f.createNew(ctx, ur, now)
			return
		}
		f.logger.Warn("update-in-place failed", "pointer", matched.pointer, "error", err)
		return
	}

	if err := f.index.TouchPointer(ctx, matched.pointer, now); err != nil {
		f.logger.Warn("touching cache pointer failed", "pointer", matched.pointer, "error", err)
	}

	for _, raw := range matched.rawLinks {
		ur.AddLink(raw)
	}
	if err := f.index.AddLinks(ctx, matched.pointer, normalizedLinks(ur.Links)); err != nil {
		f.logger.Warn("recording cache links failed", "pointer", matched.pointer, "error", err)
	}
	delete(staleSlots, matched.pointer)
}

func (f *Facade) createNew(ctx context.Context, ur *tbcore.UnifiedResult, now string) {
	pointer, err := f.store.Create(ctx, ur)
	if err != nil {
		f.logger.Warn("object store create failed", "error", err)
		return
	}
	if err := f.index.CreatePointer(ctx, pointer, now); err != nil {
		f.logger.Warn("creating cache pointer failed", "pointer", pointer, "error", err)
		return
	}
	if err := f.index.AddLinks(ctx, pointer, normalizedLinks(ur.Links)); err != nil {
		f.logger.Warn("recording cache links failed", "pointer", pointer, "error", err)
	}
}

func (f *Facade) isFresh(entry cacheindex.Entry) bool {
	t, err := time.Parse(time.RFC3339, entry.LastLookedUpAt)
	if err != nil {
		return false
	}
	return time.Since(t) < f.window
}

func normalizedLinks(links []string) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = cacheindex.NormalizeLink(l)
	}
	return out
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}
