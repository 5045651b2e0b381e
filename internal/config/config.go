package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Development bool
	// API configuration
	APIPort  int
	APIToken string
	// Postgres configuration
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	// Verus node configuration
	VerusRPCHost     string
	VerusRPCUser     string
	VerusRPCPassword string

	// Chat platform configuration
	DiscordBotToken string

	// Operator alerts
	TelegramBotToken  string
	TelegramOpsChatID string

	// Reactdrop registry, empty keeps it in memory
	RedisURL string

	// Ledger configuration
	WithdrawFeeSats      int64
	AddressRetryAttempts int
}

// LoadConfig loads the configuration from environment variables.
// Callers apply their overrides and then call Validate.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:       getEnvAsBool("DEVELOPMENT", false),
		PostgresUser:      getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:  getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:      getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:      getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:        getEnv("POSTGRES_DB", "tipbot"),
		VerusRPCHost:      getEnv("VERUS_RPC_HOST", "localhost:27486"),
		VerusRPCUser:      getEnv("VERUS_RPC_USER", ""),
		VerusRPCPassword:  getEnv("VERUS_RPC_PASSWORD", ""),
		DiscordBotToken:   getEnv("DISCORD_BOT_TOKEN", ""),
		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramOpsChatID: getEnv("TELEGRAM_OPS_CHAT_ID", ""),
		RedisURL:          getEnv("REDIS_URL", ""),

		APIPort:  getEnvAsInt("API_PORT", 6532),
		APIToken: getEnv("API_TOKEN", ""),

		WithdrawFeeSats:      getEnvAsInt64("WITHDRAW_FEE_SATS", 10_000),
		AddressRetryAttempts: getEnvAsInt("ADDRESS_RETRY_ATTEMPTS", 5),
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.PostgresDB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}

	if c.VerusRPCHost == "" {
		return fmt.Errorf("VERUS_RPC_HOST is required")
	}

	if c.DiscordBotToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}

	if c.WithdrawFeeSats < 0 {
		return fmt.Errorf("WITHDRAW_FEE_SATS must not be negative")
	}

	if c.AddressRetryAttempts < 1 {
		return fmt.Errorf("ADDRESS_RETRY_ATTEMPTS must be at least 1")
	}

	if c.TelegramOpsChatID != "" && c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_OPS_CHAT_ID is set but TELEGRAM_BOT_TOKEN is missing")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsInt64(name string, defaultValue int64) int64 {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
