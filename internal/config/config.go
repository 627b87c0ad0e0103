package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the bot.
type Config struct {
	BotToken          string
	WebsiteURL        string
	WebhookSecret     string
	AdminChatID       int64
	DatabasePath      string
	SessionsJSONPath  string
	LockFilePath      string
	HeartbeatInterval time.Duration
}

// Load reads configuration from environment variables with sane defaults.
// The bot token is required; a missing webhook secret or admin chat id only
// degrades functionality and is reported as a warning.
func Load() (Config, error) {
	cfg := Config{
		BotToken:          strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		WebsiteURL:        strings.TrimSpace(os.Getenv("WEBSITE_URL")),
		WebhookSecret:     strings.TrimSpace(os.Getenv("WEBHOOK_SECRET")),
		AdminChatID:       parseChatID(strings.TrimSpace(os.Getenv("ADMIN_CHAT_ID"))),
		DatabasePath:      strings.TrimSpace(os.Getenv("BOT_LOCAL_DB")),
		SessionsJSONPath:  strings.TrimSpace(os.Getenv("SESSIONS_JSON")),
		LockFilePath:      strings.TrimSpace(os.Getenv("LOCK_FILE")),
		HeartbeatInterval: parseInterval(strings.TrimSpace(os.Getenv("HEARTBEAT_INTERVAL_MINUTES"))),
	}

	if cfg.BotToken == "" {
		// TELEGRAM_BOT_TOKEN is accepted as a legacy alias.
		cfg.BotToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	}

	if cfg.WebsiteURL == "" {
		cfg.WebsiteURL = "https://kycut.com"
	}
	cfg.WebsiteURL = strings.TrimRight(cfg.WebsiteURL, "/")

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "kycut_bot.db"
	}
	if cfg.SessionsJSONPath == "" {
		cfg.SessionsJSONPath = "bot_sessions.json"
	}
	if cfg.LockFilePath == "" {
		cfg.LockFilePath = ".kycut_bot.pid"
	}

	if cfg.BotToken == "" {
		return cfg, fmt.Errorf("BOT_TOKEN is required")
	}

	if cfg.WebhookSecret == "" {
		log.Println("[warn] WEBHOOK_SECRET is not set; calls for unlinked users will be rejected by the website")
	}
	if cfg.AdminChatID == 0 {
		log.Println("[warn] ADMIN_CHAT_ID is not set; admin notifications are disabled")
	}

	return cfg, nil
}

func parseChatID(raw string) int64 {
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 30 * time.Minute
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes < 0 {
		return 30 * time.Minute
	}
	return time.Duration(minutes) * time.Minute
}
