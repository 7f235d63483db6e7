package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

type lookupTextRequest struct {
	Text string `json:"text"`
}

// handleLookupText streams one JSON object per line as each entity
// resolves, rather than buffering the whole batch: a large pasted
// playlist or chat backlog can take a while to fully resolve, and a
// caller should see early matches as they arrive.
func (c *Controller) handleLookupText(w http.ResponseWriter, r *http.Request) {
	var req lookupTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	for ur := range c.facade.LookupByText(r.Context(), req.Text) {
		if err := enc.Encode(toView(ur)); err != nil {
			c.logger.Warn("streaming lookup response failed", "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (c *Controller) handleLookupISRC(w http.ResponseWriter, r *http.Request) {
	isrc := r.PathValue("isrc")
	if isrc == "" {
		writeError(w, http.StatusBadRequest, "isrc must not be empty")
		return
	}
	ur, err := c.facade.LookupByISRC(r.Context(), isrc)
	c.writeSingleResult(w, ur, err)
}

func (c *Controller) handleLookupUPC(w http.ResponseWriter, r *http.Request) {
	upc := r.PathValue("upc")
	if upc == "" {
		writeError(w, http.StatusBadRequest, "upc must not be empty")
		return
	}
	ur, err := c.facade.LookupByUPC(r.Context(), upc)
	c.writeSingleResult(w, ur, err)
}

func (c *Controller) handleLookupTitle(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	artist := r.URL.Query().Get("artist")
	if title == "" || artist == "" {
		writeError(w, http.StatusBadRequest, "title and artist query parameters are required")
		return
	}
	ur, err := c.facade.LookupByTitleArtist(r.Context(), title, artist)
	c.writeSingleResult(w, ur, err)
}

func (c *Controller) writeSingleResult(w http.ResponseWriter, ur *tbcore.UnifiedResult, err error) {
	if err != nil {
		c.logger.Warn("lookup failed", "error", err)
		writeError(w, http.StatusBadGateway, "lookup failed")
		return
	}
	if ur == nil {
		writeError(w, http.StatusNotFound, "no match found")
		return
	}
	writeJSON(w, http.StatusOK, toView(ur))
}
