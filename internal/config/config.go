package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	TelegramToken string

	// RequiredReactions is the default reaction threshold for unlocking a
	// chat; admins can change it at runtime with /set_reactions.
	RequiredReactions int

	// SweepInterval is how often the background sweeper reconciles lock
	// state (retries failed unlocks, prunes stale reaction tallies).
	SweepInterval time.Duration

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)

	// ClickHouse configuration
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	UseMockDB bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Default reaction threshold (optional, default 5)
	config.RequiredReactions = 5
	if reactionsStr := os.Getenv("REQUIRED_REACTIONS"); reactionsStr != "" {
		n, err := strconv.Atoi(reactionsStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUIRED_REACTIONS: %w", err)
		}
		if n < 1 {
			return nil, fmt.Errorf("REQUIRED_REACTIONS must be positive, got %d", n)
		}
		config.RequiredReactions = n
	}

	// Sweep interval (optional, default 30 seconds)
	config.SweepInterval = 30 * time.Second
	if intervalStr := os.Getenv("SWEEP_INTERVAL_SECONDS"); intervalStr != "" {
		seconds, err := strconv.Atoi(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL_SECONDS: %w", err)
		}
		if seconds < 1 {
			return nil, fmt.Errorf("SWEEP_INTERVAL_SECONDS must be positive, got %d", seconds)
		}
		config.SweepInterval = time.Duration(seconds) * time.Second
	}

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}

	// Use Mock DB (default: false)
	config.UseMockDB = os.Getenv("USE_MOCK_DB") == "true"

	// ClickHouse configuration (required if not using mock)
	if !config.UseMockDB {
		config.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
		if config.ClickHouseHost == "" {
			return nil, fmt.Errorf("CLICKHOUSE_HOST is required when USE_MOCK_DB is not set")
		}

		portStr := os.Getenv("CLICKHOUSE_PORT")
		if portStr == "" {
			config.ClickHousePort = 9000 // Default ClickHouse native port
		} else {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
			}
			config.ClickHousePort = port
		}

		config.ClickHouseDatabase = os.Getenv("CLICKHOUSE_DATABASE")
		if config.ClickHouseDatabase == "" {
			config.ClickHouseDatabase = "default"
		}

		config.ClickHouseUser = os.Getenv("CLICKHOUSE_USER")
		if config.ClickHouseUser == "" {
			config.ClickHouseUser = "default"
		}

		config.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")
		// Password is optional, can be empty

		config.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	}

	return config, nil
}
