package config

import "flag"

// applyFlags overlays CLI flags on top of file+env values. Unset flags keep
// whatever the file/env layers already produced — flag.FlagSet defaults are
// seeded from the current config so "not passed" means "no change".
func (c *Config) applyFlags(args []string) error {
	fs := flag.NewFlagSet("tunebridge", flag.ContinueOnError)

	nodeNumber := fs.Int("node-number", c.NodeNumber, "shard identity for the chat-gateway collaborator")
	appleTeamId := fs.String("apple-team-id", c.AppleTeamId, "Apple Music developer team ID")
	appleKeyId := fs.String("apple-key-id", c.AppleKeyId, "Apple Music private key ID")
	appleKeyPath := fs.String("apple-key-path", c.AppleKeyPath, "path to the Apple Music ES256 private key (.p8)")
	spotifyClientId := fs.String("spotify-client-id", c.SpotifyClientId, "Spotify API client ID")
	spotifyClientSecret := fs.String("spotify-client-secret", c.SpotifyClientSecret, "Spotify API client secret")
	tidalClientId := fs.String("tidal-client-id", c.TidalClientId, "Tidal API client ID")
	tidalClientSecret := fs.String("tidal-client-secret", c.TidalClientSecret, "Tidal API client secret")
	blueskyPdsUrl := fs.String("bluesky-pds-url", c.BlueskyPdsUrl, "Bluesky personal data server base URL")
	blueskyIdentifier := fs.String("bluesky-identifier", c.BlueskyIdentifier, "Bluesky account identifier")
	blueskyPassword := fs.String("bluesky-password", c.BlueskyPassword, "Bluesky account app password")
	cacheDays := fs.Int("cache-days", c.CacheDays, "cache freshness window in days")
	cacheDbPath := fs.String("cache-db-path", c.CacheDbPath, "path to the cache index sqlite database")
	discordToken := fs.String("discord-token", c.DiscordToken, "Discord bot token for the chat-gateway collaborator")
	httpPort := fs.Int("http-port", c.HttpPort, "HTTP controller listen port")
	logLevel := fs.String("log-level", c.Logging.Level, "log level: debug, info, warn, error")
	logFormat := fs.String("log-format", c.Logging.Format, "log format: json or text")

	if err := fs.Parse(args); err != nil {
		return err
	}

	c.NodeNumber = *nodeNumber
	c.AppleTeamId = *appleTeamId
	c.AppleKeyId = *appleKeyId
	c.AppleKeyPath = *appleKeyPath
	c.SpotifyClientId = *spotifyClientId
	c.SpotifyClientSecret = *spotifyClientSecret
	c.TidalClientId = *tidalClientId
	c.TidalClientSecret = *tidalClientSecret
	c.BlueskyPdsUrl = *blueskyPdsUrl
	c.BlueskyIdentifier = *blueskyIdentifier
	c.BlueskyPassword = *blueskyPassword
	c.CacheDays = *cacheDays
	c.CacheDbPath = *cacheDbPath
	c.DiscordToken = *discordToken
	c.HttpPort = *httpPort
	c.Logging.Level = *logLevel
	c.Logging.Format = *logFormat

	return nil
}
