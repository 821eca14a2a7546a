package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// ErrNotTextChannel is returned for channels that cannot take a plain message.
var ErrNotTextChannel = errors.New("not a guild text channel")

// Channels resolves and posts to guild text channels. It serves the reminder
// dispatcher and the birthday job.
type Channels struct {
	api    api
	state  *discordgo.State
	logger *slog.Logger
}

func NewChannels(a api, state *discordgo.State, logger *slog.Logger) *Channels {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channels{api: a, state: state, logger: logger.With("component", "channels")}
}

// ResolveTextChannel checks the state cache, then the API.
func (c *Channels) ResolveTextChannel(ctx context.Context, channelID string) error {
	ch, err := c.state.Channel(channelID)
	if err != nil {
		ch, err = c.api.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("resolving channel %s: %w", channelID, err)
		}
	}
	if ch.Type != discordgo.ChannelTypeGuildText {
		return fmt.Errorf("channel %s (type %d): %w", channelID, ch.Type, ErrNotTextChannel)
	}
	return nil
}

// Send posts content to the channel.
func (c *Channels) Send(ctx context.Context, channelID, content string) error {
	if _, err := c.api.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("sending to channel %s: %w", channelID, err)
	}
	return nil
}
