// Package httpapi exposes the Cache Facade's four lookup methods over a
// minimal net/http controller: a streaming NDJSON endpoint for free-form
// text and three scalar endpoints for identifier/title lookups.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tsmarvin/tunebridge/internal/cachefacade"
)

// Controller holds the dependencies every handler needs.
type Controller struct {
	facade *cachefacade.Facade
	logger *slog.Logger
}

// New builds a Controller over the given Cache Facade.
func New(facade *cachefacade.Facade, logger *slog.Logger) *Controller {
	return &Controller{facade: facade, logger: logger}
}

// Routes registers every lookup endpoint on a fresh ServeMux.
func (c *Controller) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/lookup/text", c.handleLookupText)
	mux.HandleFunc("GET /v1/lookup/isrc/{isrc}", c.handleLookupISRC)
	mux.HandleFunc("GET /v1/lookup/upc/{upc}", c.handleLookupUPC)
	mux.HandleFunc("GET /v1/lookup/title", c.handleLookupTitle)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
