package models

import "context"

// MessageRef identifies a posted chat message.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// OutgoingMessage is a channel message. Only users listed in Mentions are pinged,
// even if Content references other users.
type OutgoingMessage struct {
	Content  string
	Mentions []string
}

// Reactor is a user that reacted to a message.
type Reactor struct {
	ID  string
	Bot bool
}

// Chat is the chat platform as seen by the ledger. Emoji arguments use the
// platform's API form ("name:id" for custom emoji, the raw character otherwise).
type Chat interface {
	Send(ctx context.Context, channelID string, msg *OutgoingMessage) (*MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, content string) error
	React(ctx context.Context, ref MessageRef, emoji string) error
	// ListReactors returns up to limit users that reacted with emoji, ordered by id,
	// starting after the given user id ("" for the first page).
	ListReactors(ctx context.Context, ref MessageRef, emoji string, after string, limit int) ([]Reactor, error)
	RemoveReactionMarker(ctx context.Context, ref MessageRef, emoji string) error
	DirectMessage(ctx context.Context, userID, content string) error
	GuildHasEmoji(ctx context.Context, guildID, emojiID string) (bool, error)
}
