package httpapi

import "github.com/tsmarvin/tunebridge/internal/tbcore"

// resultView is the wire shape for one provider's entry within a unified
// lookup response. Field names and tags mirror the Object Store's
// resultDTO (see internal/objectstore/record.go) since both describe the
// same tbcore.ProviderResult.
type resultView struct {
	Provider     tbcore.ProviderId `json:"provider"`
	Artist       string            `json:"artist"`
	Title        string            `json:"title"`
	URL          string            `json:"url"`
	MarketRegion string            `json:"marketRegion,omitempty"`
	ExternalID   string            `json:"externalId,omitempty"`
	ArtURL       string            `json:"artUrl,omitempty"`
	IsAlbum      *bool             `json:"isAlbum,omitempty"`
	IsPrimary    bool              `json:"isPrimary"`
}

// unifiedResultView is the JSON response body for a single resolved
// entity: one entry per configured provider that answered, plus the
// input links that were recognized as this same entity.
type unifiedResultView struct {
	Results    []resultView `json:"results"`
	Links      []string     `json:"links"`
	LookedUpAt string       `json:"lookedUpAt,omitempty"`
}

func toView(ur *tbcore.UnifiedResult) unifiedResultView {
	ordered := ur.Ordered()
	view := unifiedResultView{
		Results:    make([]resultView, 0, len(ordered)),
		Links:      ur.Links,
		LookedUpAt: ur.LookedUpAt,
	}
	for _, r := range ordered {
		view.Results = append(view.Results, resultView{
			Provider:     r.Provider,
			Artist:       r.Artist,
			Title:        r.Title,
			URL:          r.URL,
			MarketRegion: r.MarketRegion,
			ExternalID:   r.ExternalID,
			ArtURL:       r.ArtURL,
			IsAlbum:      r.IsAlbum,
			IsPrimary:    r.IsPrimary,
		})
	}
	return view
}
