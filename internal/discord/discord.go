package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/vrsc-tipbot/tipbot/internal/models"
	"github.com/vrsc-tipbot/tipbot/pkg/logger"
)

// Chat implements models.Chat with Discord REST calls.
type Chat struct {
	logger  *logger.Logger
	session *discordgo.Session
}

// New creates a REST-only session for the bot token. The gateway is owned by the
// command front-end, this process never opens it.
func New(token string, logger *logger.Logger) (*Chat, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return &Chat{logger: logger, session: session}, nil
}

func (c *Chat) Send(ctx context.Context, channelID string, msg *models.OutgoingMessage) (*models.MessageRef, error) {
	sent, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: msg.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: msg.Mentions,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return &models.MessageRef{ChannelID: sent.ChannelID, MessageID: sent.ID}, nil
}

func (c *Chat) Edit(ctx context.Context, ref models.MessageRef, content string) error {
	if _, err := c.session.ChannelMessageEdit(ref.ChannelID, ref.MessageID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to edit message %s: %w", ref.MessageID, err)
	}
	return nil
}

func (c *Chat) React(ctx context.Context, ref models.MessageRef, emoji string) error {
	if err := c.session.MessageReactionAdd(ref.ChannelID, ref.MessageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to react to message %s: %w", ref.MessageID, err)
	}
	return nil
}

func (c *Chat) ListReactors(ctx context.Context, ref models.MessageRef, emoji string, after string, limit int) ([]models.Reactor, error) {
	users, err := c.session.MessageReactions(ref.ChannelID, ref.MessageID, emoji, limit, "", after, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions on message %s: %w", ref.MessageID, err)
	}
	reactors := make([]models.Reactor, 0, len(users))
	for _, u := range users {
		reactors = append(reactors, models.Reactor{ID: u.ID, Bot: u.Bot})
	}
	return reactors, nil
}

func (c *Chat) RemoveReactionMarker(ctx context.Context, ref models.MessageRef, emoji string) error {
	if err := c.session.MessageReactionsRemoveEmoji(ref.ChannelID, ref.MessageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to remove reactions from message %s: %w", ref.MessageID, err)
	}
	return nil
}

func (c *Chat) DirectMessage(ctx context.Context, userID, content string) error {
	channel, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM with %s: %w", userID, err)
	}
	if _, err := c.session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to DM %s: %w", userID, err)
	}
	return nil
}

func (c *Chat) GuildHasEmoji(ctx context.Context, guildID, emojiID string) (bool, error) {
	emojis, err := c.session.GuildEmojis(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to list emojis of guild %s: %w", guildID, err)
	}
	for _, e := range emojis {
		if e.ID == emojiID {
			return true, nil
		}
	}
	return false, nil
}
