package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("WITHDRAW_FEE_SATS", "2500")
	t.Setenv("DEVELOPMENT", "true")
	t.Setenv("API_PORT", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.DiscordBotToken)
	assert.Equal(t, 6543, cfg.PostgresPort)
	assert.Equal(t, int64(2500), cfg.WithdrawFeeSats)
	assert.True(t, cfg.Development)
	assert.Equal(t, 6532, cfg.APIPort)
	assert.Equal(t, 5, cfg.AddressRetryAttempts)
}

func TestLoadConfigLeavesValidationToCaller(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	t.Setenv("WITHDRAW_FEE_SATS", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(0), cfg.WithdrawFeeSats)
	assert.ErrorContains(t, cfg.Validate(), "DISCORD_BOT_TOKEN")

	cfg.DiscordBotToken = "from-flag"
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := Config{
		PostgresDB:           "tipbot",
		PostgresHost:         "localhost",
		VerusRPCHost:         "localhost:27486",
		DiscordBotToken:      "token",
		AddressRetryAttempts: 1,
	}
	assert.NoError(t, valid.Validate())

	missingToken := valid
	missingToken.DiscordBotToken = ""
	assert.ErrorContains(t, missingToken.Validate(), "DISCORD_BOT_TOKEN")

	negativeFee := valid
	negativeFee.WithdrawFeeSats = -1
	assert.Error(t, negativeFee.Validate())

	orphanChat := valid
	orphanChat.TelegramOpsChatID = "42"
	assert.ErrorContains(t, orphanChat.Validate(), "TELEGRAM_BOT_TOKEN")
}
