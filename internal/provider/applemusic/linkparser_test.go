package applemusic

import (
	"context"
	"testing"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

func TestParseAlbumLink(t *testing.T) {
	a := &Adapter{}
	parsed, ok := a.Parse(context.Background(), "https://music.apple.com/us/album/a-night-at-the-opera/1440857782")
	if !ok {
		t.Fatal("expected album link to be recognized")
	}
	if parsed.Kind != tbcore.Album || parsed.Key != "1440857782" || parsed.Market != "us" {
		t.Errorf("unexpected parse result: %+v", parsed)
	}
}

func TestParseEmbeddedTrackOutranksAlbum(t *testing.T) {
	a := &Adapter{}
	parsed, ok := a.Parse(context.Background(), "https://music.apple.com/us/album/a-night-at-the-opera/1440857782?i=1440857781")
	if !ok {
		t.Fatal("expected link to be recognized")
	}
	if parsed.Kind != tbcore.Track || parsed.Key != "1440857781" {
		t.Errorf("expected the embedded track to win, got %+v", parsed)
	}
}

func TestParseRejectsUnrelatedHost(t *testing.T) {
	a := &Adapter{}
	if _, ok := a.Parse(context.Background(), "https://open.spotify.com/album/abc"); ok {
		t.Error("expected a Spotify link to be rejected by the Apple Music parser")
	}
}
