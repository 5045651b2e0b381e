package reactdrop

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/forPelevin/gomoji"

	"github.com/vrsc-tipbot/tipbot/internal/models"
)

var customEmojiPattern = regexp.MustCompile(`^<(a?):([A-Za-z0-9_~]+):(\d+)>$`)

// Emoji is a validated reaction marker.
type Emoji struct {
	// Name is the custom emoji name, or the unicode sequence itself.
	Name     string `json:"name"`
	ID       string `json:"id,omitempty"`
	Animated bool   `json:"animated,omitempty"`
}

func (e Emoji) Custom() bool {
	return e.ID != ""
}

// APIName is the form the reaction endpoints expect.
func (e Emoji) APIName() string {
	if e.Custom() {
		return e.Name + ":" + e.ID
	}
	return e.Name
}

// String renders the emoji inside message content.
func (e Emoji) String() string {
	if !e.Custom() {
		return e.Name
	}
	if e.Animated {
		return fmt.Sprintf("<a:%s:%s>", e.Name, e.ID)
	}
	return fmt.Sprintf("<:%s:%s>", e.Name, e.ID)
}

// ParseEmoji recognises a custom emoji mention or a unicode emoji.
// It does not check guild membership, see ValidateEmoji.
func ParseEmoji(input string) (Emoji, error) {
	input = strings.TrimSpace(input)
	if m := customEmojiPattern.FindStringSubmatch(input); m != nil {
		return Emoji{Name: m[2], ID: m[3], Animated: m[1] == "a"}, nil
	}
	if input == "" || !gomoji.ContainsEmoji(input) {
		return Emoji{}, fmt.Errorf("%w: %q is not an emoji", models.ErrInvalidEmoji, input)
	}
	return Emoji{Name: input}, nil
}

// GuildEmojiChecker reports whether a custom emoji belongs to a guild.
type GuildEmojiChecker interface {
	GuildHasEmoji(ctx context.Context, guildID, emojiID string) (bool, error)
}

// ValidateEmoji parses input and, for custom emoji, requires it to exist in the guild.
func ValidateEmoji(ctx context.Context, checker GuildEmojiChecker, guildID, input string) (Emoji, error) {
	emoji, err := ParseEmoji(input)
	if err != nil {
		return Emoji{}, err
	}
	if !emoji.Custom() {
		return emoji, nil
	}
	if guildID == "" {
		return Emoji{}, fmt.Errorf("%w: custom emoji outside of a server", models.ErrInvalidEmoji)
	}
	ok, err := checker.GuildHasEmoji(ctx, guildID, emoji.ID)
	if err != nil {
		return Emoji{}, fmt.Errorf("%w: %s", models.ErrExternalDelivery, err)
	}
	if !ok {
		return Emoji{}, fmt.Errorf("%w: emoji %s is not in this server", models.ErrInvalidEmoji, emoji.Name)
	}
	return emoji, nil
}
