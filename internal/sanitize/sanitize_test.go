package sanitize

import "testing"

func TestSongTitleDecorations(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Bohemian Rhapsody", "Bohemian Rhapsody"},
		{"Bohemian Rhapsody (Remastered 2011)", "Bohemian Rhapsody"},
		{"Bohemian Rhapsody - Remastered", "Bohemian Rhapsody"},
		{"Don’t Stop Me Now", "Dont Stop Me Now"},
		{"“Under Pressure”", "Under Pressure"},
		{"Just Dance (Radio Edit)", "Just Dance Radio Edit"},
		{"Just Dance - Radio Edit", "Just Dance Radio Edit"},
		{"Just Dance Radio Edit", "Just Dance Radio Edit"},
	}
	for _, c := range cases {
		if got := SongTitle(c.in); got != c.want {
			t.Errorf("SongTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSongTitleIdempotent(t *testing.T) {
	inputs := []string{
		"Just Dance (Radio Edit)",
		"Bohemian Rhapsody (Remastered 2011)",
		"Plain Title",
	}
	for _, in := range inputs {
		once := SongTitle(in)
		twice := SongTitle(once)
		if once != twice {
			t.Errorf("SongTitle not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestAlbumTitleDecorations(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"A Night at the Opera", "A Night at the Opera"},
		{"Blackstar (Single)", "Blackstar"},
		{"Blackstar - Single", "Blackstar"},
		{"Lover (Deluxe Edition)", "Lover"},
		{"folklore - EP", "folklore"},
	}
	for _, c := range cases {
		if got := AlbumTitle(c.in); got != c.want {
			t.Errorf("AlbumTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAlbumTitleIdempotent(t *testing.T) {
	inputs := []string{"Lover (Deluxe Edition)", "folklore - EP", "Plain Album"}
	for _, in := range inputs {
		once := AlbumTitle(in)
		twice := AlbumTitle(once)
		if once != twice {
			t.Errorf("AlbumTitle not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestEqualityClasses(t *testing.T) {
	decorations := []string{"(Remastered)", "(Deluxe Edition)", " - Single", " - EP"}
	base := "Midnights"
	for _, d := range decorations {
		if !EqualAlbumTitles(base, base+d) {
			t.Errorf("expected %q and %q to be equal album titles", base, base+d)
		}
	}
	if !EqualSongTitles("Anti-Hero (Radio Edit)", "Anti-Hero - Radio Edit") {
		t.Error("radio edit retention should still compare equal after sanitizing both sides")
	}
}

func TestNormalizeLink(t *testing.T) {
	cases := map[string]string{
		"  HTTPS://Music.Apple.Com/us/album/123/ ": "music.apple.com/us/album/123",
		"http://open.spotify.com/track/abc":        "open.spotify.com/track/abc",
		"tidal.com/track/1":                        "tidal.com/track/1",
	}
	for in, want := range cases {
		if got := NormalizeLink(in); got != want {
			t.Errorf("NormalizeLink(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveArtURL(t *testing.T) {
	got := ResolveArtURL("https://example.com/art/{w}x{h}bb.jpg", 600, 600)
	want := "https://example.com/art/600x600bb.jpg"
	if got != want {
		t.Errorf("ResolveArtURL() = %q, want %q", got, want)
	}
	if got := ResolveArtURL("https://example.com/art.jpg", 600, 600); got != "https://example.com/art.jpg" {
		t.Errorf("expected unchanged URL without placeholders, got %q", got)
	}
}

func TestNormalizeUPC(t *testing.T) {
	if got := NormalizeUPC("00602547202307"); got != "602547202307" {
		t.Errorf("NormalizeUPC stripped incorrectly: %q", got)
	}
	if got := NormalizeUPC("000"); got != "0" {
		t.Errorf("NormalizeUPC all-zero case: %q", got)
	}
}
