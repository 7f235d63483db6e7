package objectstore

import "github.com/tsmarvin/tunebridge/internal/tbcore"

// record is the stable wire format both backends serialize: a flat list of
// provider results plus the timestamp of the lookup that produced them.
// Field names are part of the external contract and must not change.
type record struct {
	Results    []resultDTO `json:"results"`
	LookedUpAt string      `json:"lookedUpAt"`
}

type resultDTO struct {
	Provider     string `json:"provider"`
	Artist       string `json:"artist"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	MarketRegion string `json:"marketRegion,omitempty"`
	ExternalID   string `json:"externalId,omitempty"`
	ArtURL       string `json:"artUrl,omitempty"`
	IsAlbum      *bool  `json:"isAlbum,omitempty"`
}

func toRecord(ur *tbcore.UnifiedResult) record {
	rec := record{LookedUpAt: ur.LookedUpAt}
	for _, r := range ur.Ordered() {
		rec.Results = append(rec.Results, resultDTO{
			Provider:     string(r.Provider),
			Artist:       r.Artist,
			Title:        r.Title,
			URL:          r.URL,
			MarketRegion: r.MarketRegion,
			ExternalID:   r.ExternalID,
			ArtURL:       r.ArtURL,
			IsAlbum:      r.IsAlbum,
		})
	}
	return rec
}

// fromRecord rebuilds a UnifiedResult from its wire form, skipping any
// provider entry whose ProviderId this build doesn't recognize rather than
// failing the whole read.
func fromRecord(rec record) *tbcore.UnifiedResult {
	known := make(map[tbcore.ProviderId]bool)
	for _, p := range tbcore.AllProviderIDs() {
		known[p] = true
	}

	ur := tbcore.NewUnifiedResult()
	ur.LookedUpAt = rec.LookedUpAt
	for _, dto := range rec.Results {
		pid := tbcore.ProviderId(dto.Provider)
		if !known[pid] {
			continue
		}
		ur.Set(tbcore.ProviderResult{
			Provider:     pid,
			Artist:       dto.Artist,
			Title:        dto.Title,
			URL:          dto.URL,
			MarketRegion: dto.MarketRegion,
			ExternalID:   dto.ExternalID,
			ArtURL:       dto.ArtURL,
			IsAlbum:      dto.IsAlbum,
		})
	}
	return ur
}
