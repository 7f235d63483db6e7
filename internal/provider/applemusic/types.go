package applemusic

import "github.com/tsmarvin/tunebridge/internal/sanitize"

// searchResponse is the shape of /v1/catalog/{storefront}/search.
type searchResponse struct {
	Results struct {
		Artists resourceList `json:"artists"`
		Albums  resourceList `json:"albums"`
		Songs   resourceList `json:"songs"`
	} `json:"results"`
}

// resourceList matches the {data: [...]} envelope Apple wraps every
// resource collection in, including single-resource GETs.
type resourceList struct {
	Data []resource `json:"data"`
}

type resource struct {
	Id         string     `json:"id"`
	Type       string     `json:"type"`
	Attributes attributes `json:"attributes"`
}

type attributes struct {
	Name       string   `json:"name"`
	ArtistName string   `json:"artistName"`
	Isrc       string   `json:"isrc"`
	Upc        string   `json:"upc"`
	Url        string   `json:"url"`
	Artwork    *artwork `json:"artwork"`
}

type artwork struct {
	Url string `json:"url"`
}

// resolved fills in Apple's {w}x{h} artwork template at a fixed size; 600px
// is large enough for any embed consumer and keeps the cached URL stable.
func (a artwork) resolved() string {
	if a.Url == "" {
		return ""
	}
	return sanitize.ResolveArtURL(a.Url, 600, 600)
}
