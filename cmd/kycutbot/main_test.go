package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"kycut-bot/internal/config"
	"kycut-bot/internal/httpapi"
	"kycut-bot/internal/lockfile"
	"kycut-bot/internal/repository"
	"kycut-bot/internal/service"
)

// TestBootstrapWiring assembles the dependency graph the way main does,
// minus the Telegram transport, against a local API stub.
func TestBootstrapWiring(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	cfg := config.Config{
		BotToken:         "123:abc",
		WebsiteURL:       server.URL,
		WebhookSecret:    "secret",
		DatabasePath:     filepath.Join(dir, "bot.db"),
		SessionsJSONPath: filepath.Join(dir, "sessions.json"),
		LockFilePath:     filepath.Join(dir, "bot.pid"),
	}

	lock, err := lockfile.Acquire(cfg.LockFilePath)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer lock.Release()

	store := repository.NewSessionStore(cfg.DatabasePath, cfg.SessionsJSONPath)
	api := httpapi.New(cfg.WebsiteURL, cfg.WebhookSecret)

	sessions := service.NewSessionService(store, api)
	defer sessions.Close()
	status := service.NewStatusService(api)

	if err := sessions.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if _, online := status.Ping(context.Background()); !online {
		t.Fatal("ping against stub failed")
	}
}
