package reactdrop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vrsc-tipbot/tipbot/internal/discord/discordtest"
	"github.com/vrsc-tipbot/tipbot/internal/models"
)

func TestParseEmoji(t *testing.T) {
	e, err := ParseEmoji("<:verus:123456>")
	require.NoError(t, err)
	assert.Equal(t, Emoji{Name: "verus", ID: "123456"}, e)
	assert.Equal(t, "verus:123456", e.APIName())
	assert.Equal(t, "<:verus:123456>", e.String())

	e, err = ParseEmoji("<a:spin:42>")
	require.NoError(t, err)
	assert.True(t, e.Animated)
	assert.Equal(t, "<a:spin:42>", e.String())

	e, err = ParseEmoji(" 🎉 ")
	require.NoError(t, err)
	assert.False(t, e.Custom())
	assert.Equal(t, "🎉", e.APIName())
	assert.Equal(t, "🎉", e.String())

	for _, bad := range []string{"", "hello", "<:verus:abc>", ":verus:"} {
		_, err := ParseEmoji(bad)
		assert.ErrorIs(t, err, models.ErrInvalidEmoji, bad)
	}
}

func TestValidateEmoji(t *testing.T) {
	ctx := context.Background()
	chat := discordtest.NewChat()
	chat.GuildEmojis["guild"] = []string{"123"}

	e, err := ValidateEmoji(ctx, chat, "guild", "<:verus:123>")
	require.NoError(t, err)
	assert.Equal(t, "123", e.ID)

	_, err = ValidateEmoji(ctx, chat, "guild", "<:other:999>")
	assert.ErrorIs(t, err, models.ErrInvalidEmoji)

	_, err = ValidateEmoji(ctx, chat, "", "<:verus:123>")
	assert.ErrorIs(t, err, models.ErrInvalidEmoji)

	// Unicode emoji never need a guild lookup.
	_, err = ValidateEmoji(ctx, chat, "", "🚀")
	assert.NoError(t, err)
}
