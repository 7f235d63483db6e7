// Package config loads TuneBridge's configuration from a YAML file,
// environment variables, and CLI flags, in that precedence order (flags
// beat env beat file), and supports hot reload of the file+env layers via
// an fsnotify watch on the file path.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// Config holds every setting the core and its collaborators need. It is
// deliberately flat — every key maps 1:1 to a YAML key, a TB_-prefixed
// environment variable, and a CLI flag, except the logging file path (YAML
// and env only) and the log rotation limits (YAML only).
type Config struct {
	NodeNumber int `yaml:"node_number"`

	AppleTeamId  string `yaml:"apple_team_id"`
	AppleKeyId   string `yaml:"apple_key_id"`
	AppleKeyPath string `yaml:"apple_key_path"`

	SpotifyClientId     string `yaml:"spotify_client_id"`
	SpotifyClientSecret string `yaml:"spotify_client_secret"`

	TidalClientId     string `yaml:"tidal_client_id"`
	TidalClientSecret string `yaml:"tidal_client_secret"`

	BlueskyPdsUrl     string `yaml:"bluesky_pds_url"`
	BlueskyIdentifier string `yaml:"bluesky_identifier"`
	BlueskyPassword   string `yaml:"bluesky_password"`

	CacheDays   int    `yaml:"cache_days"`
	CacheDbPath string `yaml:"cache_db_path"`

	DiscordToken string `yaml:"discord_token"`

	HttpPort int           `yaml:"http_port"`
	Logging  LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds structured-logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMb  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns a Config with sensible defaults. Every provider/object
// store credential defaults empty — the caller determines which providers
// are enabled by which credential sets are complete.
func Default() *Config {
	return &Config{
		NodeNumber:  1,
		CacheDays:   14,
		CacheDbPath: "/data/tunebridge.db",
		HttpPort:    8080,
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMb:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads config from a YAML file (if path is non-empty and the file
// exists), overlays TB_-prefixed environment variables, then overlays CLI
// flags parsed from args (os.Args[1:] in production). Flags win over env,
// env wins over file.
func Load(path string, args []string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.applyFlags(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// ReloadFileAndEnv re-reads path and the environment over a fresh set of
// defaults, preserving nothing from the prior load — used by the fsnotify
// watcher. Flags are process-lifetime and are intentionally not reapplied.
func ReloadFileAndEnv(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("reloading config file: %w", err)
		}
	}
	cfg.loadFromEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating reloaded config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	num("TB_NODE_NUMBER", &c.NodeNumber)
	str("TB_APPLE_TEAM_ID", &c.AppleTeamId)
	str("TB_APPLE_KEY_ID", &c.AppleKeyId)
	str("TB_APPLE_KEY_PATH", &c.AppleKeyPath)
	str("TB_SPOTIFY_CLIENT_ID", &c.SpotifyClientId)
	str("TB_SPOTIFY_CLIENT_SECRET", &c.SpotifyClientSecret)
	str("TB_TIDAL_CLIENT_ID", &c.TidalClientId)
	str("TB_TIDAL_CLIENT_SECRET", &c.TidalClientSecret)
	str("TB_BLUESKY_PDS_URL", &c.BlueskyPdsUrl)
	str("TB_BLUESKY_IDENTIFIER", &c.BlueskyIdentifier)
	str("TB_BLUESKY_PASSWORD", &c.BlueskyPassword)
	num("TB_CACHE_DAYS", &c.CacheDays)
	str("TB_CACHE_DB_PATH", &c.CacheDbPath)
	str("TB_DISCORD_TOKEN", &c.DiscordToken)
	num("TB_HTTP_PORT", &c.HttpPort)
	str("TB_LOG_LEVEL", &c.Logging.Level)
	str("TB_LOG_FORMAT", &c.Logging.Format)
	str("TB_LOG_FILE_PATH", &c.Logging.FilePath)
}

func (c *Config) validate() error {
	if c.HttpPort < 1 || c.HttpPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HttpPort)
	}
	if c.CacheDbPath == "" {
		return fmt.Errorf("cache db path is required")
	}
	if c.CacheDays < 1 {
		return fmt.Errorf("cache days must be >= 1")
	}
	if !c.AppleConfigured() && !c.SpotifyConfigured() && !c.TidalConfigured() {
		return ErrNoProviderConfigured
	}
	c.BlueskyPdsUrl = trimTrailingSlash(c.BlueskyPdsUrl)
	return nil
}

// ErrNoProviderConfigured is returned by validate when every provider's
// credential set is incomplete — the core has nothing to fan out to.
var ErrNoProviderConfigured = tbcore.ErrConfigurationInsufficient

// AppleConfigured reports whether all three Apple Music credentials are
// present. The key file's existence and non-emptiness is checked by the
// Token Source at construction, not here.
func (c *Config) AppleConfigured() bool {
	return c.AppleTeamId != "" && c.AppleKeyId != "" && c.AppleKeyPath != ""
}

// SpotifyConfigured reports whether both Spotify client credentials are
// present.
func (c *Config) SpotifyConfigured() bool {
	return c.SpotifyClientId != "" && c.SpotifyClientSecret != ""
}

// TidalConfigured reports whether both Tidal client credentials are
// present.
func (c *Config) TidalConfigured() bool {
	return c.TidalClientId != "" && c.TidalClientSecret != ""
}

// BlueskyConfigured reports whether all three Bluesky PDS credentials are
// present; when false the Object Store Adapter falls back to the local
// sqlite backend.
func (c *Config) BlueskyConfigured() bool {
	return c.BlueskyPdsUrl != "" && c.BlueskyIdentifier != "" && c.BlueskyPassword != ""
}

func trimTrailingSlash(s string) string {
	return strings.TrimRight(s, "/")
}
