package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BOT_TOKEN", "TELEGRAM_BOT_TOKEN", "WEBSITE_URL", "WEBHOOK_SECRET",
		"ADMIN_CHAT_ID", "BOT_LOCAL_DB", "SESSIONS_JSON", "LOCK_FILE",
		"HEARTBEAT_INTERVAL_MINUTES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadRequiresBotToken(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error without BOT_TOKEN")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WebsiteURL != "https://kycut.com" {
		t.Errorf("website url = %q", cfg.WebsiteURL)
	}
	if cfg.DatabasePath != "kycut_bot.db" {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
	if cfg.SessionsJSONPath != "bot_sessions.json" {
		t.Errorf("sessions path = %q", cfg.SessionsJSONPath)
	}
	if cfg.LockFilePath != ".kycut_bot.pid" {
		t.Errorf("lock path = %q", cfg.LockFilePath)
	}
	if cfg.HeartbeatInterval != 30*time.Minute {
		t.Errorf("heartbeat = %v", cfg.HeartbeatInterval)
	}
	if cfg.AdminChatID != 0 {
		t.Errorf("admin chat id = %d", cfg.AdminChatID)
	}
}

func TestLoadLegacyTokenAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "456:def")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BotToken != "456:def" {
		t.Errorf("token = %q", cfg.BotToken)
	}
}

func TestLoadParsesValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("WEBSITE_URL", "https://staging.kycut.com/")
	t.Setenv("ADMIN_CHAT_ID", "-1001234567890")
	t.Setenv("HEARTBEAT_INTERVAL_MINUTES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WebsiteURL != "https://staging.kycut.com" {
		t.Errorf("trailing slash kept: %q", cfg.WebsiteURL)
	}
	if cfg.AdminChatID != -1001234567890 {
		t.Errorf("admin chat id = %d", cfg.AdminChatID)
	}
	if cfg.HeartbeatInterval != 5*time.Minute {
		t.Errorf("heartbeat = %v", cfg.HeartbeatInterval)
	}
}

func TestLoadBadNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_CHAT_ID", "not-a-number")
	t.Setenv("HEARTBEAT_INTERVAL_MINUTES", "-3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AdminChatID != 0 {
		t.Errorf("admin chat id = %d", cfg.AdminChatID)
	}
	if cfg.HeartbeatInterval != 30*time.Minute {
		t.Errorf("heartbeat = %v", cfg.HeartbeatInterval)
	}
}
