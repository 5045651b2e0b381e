// Package discordtest provides an in-memory models.Chat for tests.
package discordtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vrsc-tipbot/tipbot/internal/models"
)

var ErrBlocked = errors.New("cannot send messages to this user")

type SentMessage struct {
	ChannelID string
	Message   models.OutgoingMessage
	Ref       models.MessageRef
}

type Edit struct {
	Ref     models.MessageRef
	Content string
}

// Chat records every call. Reactors are served sorted by id, like Discord does.
type Chat struct {
	mu sync.Mutex

	Sent        []SentMessage
	Edits       []Edit
	Reactions   []string
	Removed     []string
	DMs         map[string][]string
	ListCalls   int
	GuildEmojis map[string][]string

	reactors     []models.Reactor
	blocked      map[string]bool
	listFailures int
	failSend     bool
	failEdit     bool
	failRemove   bool
	nextID       int
}

func NewChat() *Chat {
	return &Chat{
		DMs:         map[string][]string{},
		GuildEmojis: map[string][]string{},
		blocked:     map[string]bool{},
	}
}

// SetReactors replaces the users that reacted to any message.
func (c *Chat) SetReactors(reactors ...models.Reactor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reactors = append([]models.Reactor(nil), reactors...)
	sort.Slice(c.reactors, func(i, j int) bool { return c.reactors[i].ID < c.reactors[j].ID })
}

// Block makes DMs to userID fail.
func (c *Chat) Block(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocked[userID] = true
}

// FailListing makes the next n ListReactors calls fail.
func (c *Chat) FailListing(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listFailures = n
}

func (c *Chat) FailSends()   { c.mu.Lock(); c.failSend = true; c.mu.Unlock() }
func (c *Chat) FailEdits()   { c.mu.Lock(); c.failEdit = true; c.mu.Unlock() }
func (c *Chat) FailRemoval() { c.mu.Lock(); c.failRemove = true; c.mu.Unlock() }

func (c *Chat) Send(_ context.Context, channelID string, msg *models.OutgoingMessage) (*models.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return nil, errors.New("send failed")
	}
	c.nextID++
	ref := models.MessageRef{ChannelID: channelID, MessageID: fmt.Sprintf("m%d", c.nextID)}
	c.Sent = append(c.Sent, SentMessage{ChannelID: channelID, Message: *msg, Ref: ref})
	return &ref, nil
}

func (c *Chat) Edit(_ context.Context, ref models.MessageRef, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failEdit {
		return errors.New("edit failed")
	}
	c.Edits = append(c.Edits, Edit{Ref: ref, Content: content})
	return nil
}

func (c *Chat) React(_ context.Context, _ models.MessageRef, emoji string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Reactions = append(c.Reactions, emoji)
	return nil
}

func (c *Chat) ListReactors(_ context.Context, _ models.MessageRef, _ string, after string, limit int) ([]models.Reactor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ListCalls++
	if c.listFailures > 0 {
		c.listFailures--
		return nil, errors.New("502 bad gateway")
	}
	page := []models.Reactor{}
	for _, r := range c.reactors {
		if r.ID <= after {
			continue
		}
		if len(page) == limit {
			break
		}
		page = append(page, r)
	}
	return page, nil
}

func (c *Chat) RemoveReactionMarker(_ context.Context, _ models.MessageRef, emoji string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failRemove {
		return errors.New("missing permissions")
	}
	c.Removed = append(c.Removed, emoji)
	return nil
}

func (c *Chat) DirectMessage(_ context.Context, userID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.blocked[userID] {
		return ErrBlocked
	}
	c.DMs[userID] = append(c.DMs[userID], content)
	return nil
}

func (c *Chat) GuildHasEmoji(_ context.Context, guildID, emojiID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.GuildEmojis[guildID] {
		if id == emojiID {
			return true, nil
		}
	}
	return false, nil
}

// SentMessages returns a copy of the sent messages.
func (c *Chat) SentMessages() []SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentMessage(nil), c.Sent...)
}

// EditContents returns the content of every edit in order.
func (c *Chat) EditContents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.Edits))
	for _, e := range c.Edits {
		out = append(out, e.Content)
	}
	return out
}

// DMsTo returns the DMs received by userID.
func (c *Chat) DMsTo(userID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.DMs[userID]...)
}

// RemovedMarkers returns the emojis removed from anchor messages.
func (c *Chat) RemovedMarkers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Removed...)
}
