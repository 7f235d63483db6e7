package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

func TestNewOAuthSourceRejectsMissingCredentials(t *testing.T) {
	if _, err := NewOAuthSource(tbcore.Spotify, "", "secret", "https://example.com/token", nil); err == nil {
		t.Error("expected error for empty client id")
	}
}

func TestOAuthSourceFetchesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "abc123",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	src, err := NewOAuthSource(tbcore.Spotify, "client", "secret", srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tok, err := src.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "abc123" {
		t.Errorf("got token %q, want abc123", tok)
	}
}
