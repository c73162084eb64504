package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/mtholden/attend/internal/logging"
)

// DiscordNotifier sends notifications as messages to a Discord channel.
// Only the REST API is used, so the session never opens a gateway
// connection.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

// NewDiscordNotifier creates a notifier for a bot token and channel.
func NewDiscordNotifier(token, channelID string) (*DiscordNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("channel ID is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID}, nil
}

// Notify sends the notification as a channel message.
func (d *DiscordNotifier) Notify(_ context.Context, n Notification) error {
	content := fmt.Sprintf("**%s**\n%s", n.Title, n.Body)
	if n.Priority == PriorityHigh {
		content = "@here " + content
	}
	if _, err := d.session.ChannelMessageSend(d.channelID, content); err != nil {
		return fmt.Errorf("send discord message: %w", err)
	}
	logging.Debug("notify", "discord sent %s", n.ID)
	return nil
}
