package spotify

import "strings"

// searchResponse is the shape of GET /v1/search.
type searchResponse struct {
	Artists struct {
		Items []artistObject `json:"items"`
	} `json:"artists"`
	Tracks struct {
		Items []trackObject `json:"items"`
	} `json:"tracks"`
}

type artistObject struct {
	Id string `json:"id"`
}

type albumsPage struct {
	Items []albumObject `json:"items"`
}

type albumObject struct {
	Id           string        `json:"id"`
	Name         string        `json:"name"`
	ExternalIds  externalIds   `json:"external_ids"`
	ExternalUrls externalUrls  `json:"external_urls"`
	Artists      []artistNamed `json:"artists"`
	Images       []image       `json:"images"`
}

type tracksPage struct {
	Items []trackObject `json:"items"`
}

type trackObject struct {
	Id           string        `json:"id"`
	Name         string        `json:"name"`
	ExternalIds  externalIds   `json:"external_ids"`
	ExternalUrls externalUrls  `json:"external_urls"`
	Artists      []artistNamed `json:"artists"`
	Album        struct {
		Images []image `json:"images"`
	} `json:"album"`
}

type artistNamed struct {
	Name string `json:"name"`
}

type externalIds struct {
	Isrc string `json:"isrc"`
	Upc  string `json:"upc"`
}

type externalUrls struct {
	Spotify string `json:"spotify"`
}

type image struct {
	Url string `json:"url"`
}

func joinArtists(artists []artistNamed) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, " & ")
}

func firstImage(images []image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].Url
}
