// Package chatgateway defines the collaborator boundary a chat-bot adapter
// (Discord, Slack, ...) would implement against to resolve links pasted
// into a conversation. No real chat-platform client is implemented here —
// LoggingGateway exists so the core lookup path has something to wire
// against and exercise end to end.
package chatgateway

import (
	"context"
	"log/slog"

	"github.com/tsmarvin/tunebridge/internal/cachefacade"
)

// Gateway receives free-form chat message text and resolves any
// recognized links against every configured provider.
type Gateway interface {
	HandleMessage(ctx context.Context, channelID, text string) error
}

// LoggingGateway runs every message through the Cache Facade's text
// lookup and logs each resolved entity. It stands in for a real adapter
// that would instead post a reply back into the originating channel.
type LoggingGateway struct {
	facade *cachefacade.Facade
	logger *slog.Logger
}

func NewLoggingGateway(facade *cachefacade.Facade, logger *slog.Logger) *LoggingGateway {
	return &LoggingGateway{facade: facade, logger: logger}
}

func (g *LoggingGateway) HandleMessage(ctx context.Context, channelID, text string) error {
	count := 0
	for ur := range g.facade.LookupByText(ctx, text) {
		primary, _ := ur.Primary()
		g.logger.Info("resolved link in chat message",
			"channel", channelID,
			"title", primary.Title,
			"artist", primary.Artist,
			"providers", len(ur.Ordered()),
		)
		count++
	}
	if count == 0 {
		g.logger.Debug("no recognized links in chat message", "channel", channelID)
	}
	return nil
}
