package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tsmarvin/tunebridge/internal/aggregator"
	"github.com/tsmarvin/tunebridge/internal/cachefacade"
	"github.com/tsmarvin/tunebridge/internal/cacheindex"
	"github.com/tsmarvin/tunebridge/internal/chatgateway"
	"github.com/tsmarvin/tunebridge/internal/config"
	"github.com/tsmarvin/tunebridge/internal/database"
	"github.com/tsmarvin/tunebridge/internal/httpapi"
	"github.com/tsmarvin/tunebridge/internal/logging"
	"github.com/tsmarvin/tunebridge/internal/objectstore"
	"github.com/tsmarvin/tunebridge/internal/provider"
	"github.com/tsmarvin/tunebridge/internal/provider/applemusic"
	"github.com/tsmarvin/tunebridge/internal/provider/spotify"
	"github.com/tsmarvin/tunebridge/internal/provider/tidal"
	"github.com/tsmarvin/tunebridge/internal/provider/token"
	"github.com/tsmarvin/tunebridge/internal/tbcore"
	"github.com/tsmarvin/tunebridge/internal/transport"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	tidalTokenURL   = "https://auth.tidal.com/v1/oauth2/token"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("TB_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/tunebridge.yaml"
	}

	cfg, err := config.Load(configPath, os.Args[1:])
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(toLoggingConfig(cfg.Logging))
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	if watcher, err := config.WatchFile(configPath, logger, func(reloaded *config.Config) {
		logManager.Reconfigure(toLoggingConfig(reloaded.Logging))
		logger.Info("reloaded logging configuration from file")
	}); err != nil {
		logger.Warn("config file watch unavailable, hot reload disabled", "error", err)
	} else {
		defer watcher.Close() //nolint:errcheck
	}

	db, err := database.Open(cfg.CacheDbPath)
	if err != nil {
		return fmt.Errorf("opening cache database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing cache database", "error", err)
		}
	}()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running cache migrations: %w", err)
	}

	store := buildObjectStore(cfg, db, logger)
	index := cacheindex.New(db)

	registry, err := buildProviderRegistry(cfg, logger)
	if err != nil {
		return fmt.Errorf("building provider registry: %w", err)
	}

	agg := aggregator.New(registry, logger)
	facade := cachefacade.New(agg, index, store, cfg.CacheDays, logger)

	if cfg.DiscordToken != "" {
		// No Discord transport is implemented; the gateway is constructed so
		// the collaborator seam is live and exercised, not dead code.
		gateway := chatgateway.NewLoggingGateway(facade, logger.With(slog.String("collaborator", "chatgateway")))
		logger.Warn("discord token configured but no chat transport is implemented; chat-gateway collaborator is idle", "gateway_ready", gateway != nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	controller := httpapi.New(facade, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HttpPort),
		Handler:      controller.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", slog.Int("port", cfg.HttpPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// toLoggingConfig maps the flat config.LoggingConfig (YAML/env/flag surface)
// onto logging.Config (the Manager's field names), since the two packages
// name the lumberjack knobs differently.
func toLoggingConfig(c config.LoggingConfig) logging.Config {
	return logging.Config{
		Level:          c.Level,
		Format:         c.Format,
		FilePath:       c.FilePath,
		FileMaxSizeMB:  c.MaxSizeMb,
		FileMaxFiles:   c.MaxBackups,
		FileMaxAgeDays: c.MaxAgeDays,
	}
}

func buildObjectStore(cfg *config.Config, db *sql.DB, logger *slog.Logger) objectstore.Store {
	if cfg.BlueskyConfigured() {
		client := transport.NewClient(transport.DefaultPolicy(), logger.With(slog.String("collaborator", "objectstore")))
		logger.Info("object store backend: bluesky", slog.String("pds", cfg.BlueskyPdsUrl))
		return objectstore.NewBlueskyStore(cfg.BlueskyPdsUrl, cfg.BlueskyIdentifier, cfg.BlueskyPassword, client)
	}
	logger.Info("object store backend: local sqlite (bluesky not configured)")
	return objectstore.NewLocalStore(db)
}

func buildProviderRegistry(cfg *config.Config, logger *slog.Logger) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	limiter := provider.NewRateLimiterMap()

	if cfg.AppleConfigured() {
		src, err := token.NewAppleSource(cfg.AppleTeamId, cfg.AppleKeyId, cfg.AppleKeyPath)
		if err != nil {
			return nil, fmt.Errorf("configuring apple music: %w", err)
		}
		clients := transport.NewProviderClients(tbcore.AppleMusic, logger)
		registry.Register(applemusic.New(src, limiter, clients.API, logger.With(slog.String("provider", "appleMusic"))))
	}

	if cfg.SpotifyConfigured() {
		clients := transport.NewProviderClients(tbcore.Spotify, logger)
		src, err := token.NewOAuthSource(tbcore.Spotify, cfg.SpotifyClientId, cfg.SpotifyClientSecret, spotifyTokenURL, clients.API)
		if err != nil {
			return nil, fmt.Errorf("configuring spotify: %w", err)
		}
		registry.Register(spotify.New(src, limiter, clients.API, clients.Redirect, logger.With(slog.String("provider", "spotify"))))
	}

	if cfg.TidalConfigured() {
		clients := transport.NewProviderClients(tbcore.Tidal, logger)
		src, err := token.NewOAuthSource(tbcore.Tidal, cfg.TidalClientId, cfg.TidalClientSecret, tidalTokenURL, clients.API)
		if err != nil {
			return nil, fmt.Errorf("configuring tidal: %w", err)
		}
		registry.Register(tidal.New(src, limiter, clients.API, clients.Redirect, logger.With(slog.String("provider", "tidal"))))
	}

	return registry, nil
}
