package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tunebridge.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFailsWithNoProviderConfigured(t *testing.T) {
	path := writeTempConfig(t, "cache_db_path: /tmp/x.db\n")
	_, err := Load(path, nil)
	if err == nil {
		t.Fatal("expected an error when no provider credentials are configured")
	}
}

func TestLoadSucceedsWithOneProviderConfigured(t *testing.T) {
	path := writeTempConfig(t, `
cache_db_path: /tmp/x.db
spotify_client_id: abc
spotify_client_secret: def
`)
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.SpotifyConfigured() {
		t.Error("expected SpotifyConfigured to be true")
	}
	if cfg.AppleConfigured() || cfg.TidalConfigured() {
		t.Error("expected Apple and Tidal to remain unconfigured")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeTempConfig(t, `
cache_db_path: /tmp/x.db
spotify_client_id: from-file
spotify_client_secret: from-file
`)
	t.Setenv("TB_SPOTIFY_CLIENT_ID", "from-env")
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SpotifyClientId != "from-env" {
		t.Errorf("expected env to override file, got %q", cfg.SpotifyClientId)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	path := writeTempConfig(t, "cache_db_path: /tmp/x.db\n")
	t.Setenv("TB_SPOTIFY_CLIENT_ID", "from-env")
	t.Setenv("TB_SPOTIFY_CLIENT_SECRET", "from-env")
	cfg, err := Load(path, []string{"-spotify-client-id=from-flag"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SpotifyClientId != "from-flag" {
		t.Errorf("expected flag to override env, got %q", cfg.SpotifyClientId)
	}
	if cfg.SpotifyClientSecret != "from-env" {
		t.Errorf("expected untouched env value to survive, got %q", cfg.SpotifyClientSecret)
	}
}

func TestBlueskyConfiguredRequiresAllThreeKeys(t *testing.T) {
	cfg := Default()
	cfg.BlueskyPdsUrl = "https://bsky.social"
	if cfg.BlueskyConfigured() {
		t.Error("expected BlueskyConfigured to require identifier and password too")
	}
	cfg.BlueskyIdentifier = "user.bsky.social"
	cfg.BlueskyPassword = "app-password"
	if !cfg.BlueskyConfigured() {
		t.Error("expected BlueskyConfigured to be true once all three are set")
	}
}

func TestInvalidPortRejected(t *testing.T) {
	path := writeTempConfig(t, `
cache_db_path: /tmp/x.db
spotify_client_id: abc
spotify_client_secret: def
http_port: 70000
`)
	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected an error for an out-of-range port")
	}
}
