package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatclient.yaml")
	data := `
server:
  url: http://chat.example.com
  username: alice
chat:
  page_size: 50
storage:
  archive_path: /tmp/chat.db
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.URL != "http://chat.example.com" || cfg.Server.Username != "alice" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Chat.PageSize != 50 {
		t.Fatalf("expected page size 50, got %d", cfg.Chat.PageSize)
	}
	if cfg.Storage.ArchivePath != "/tmp/chat.db" {
		t.Fatalf("unexpected archive path: %q", cfg.Storage.ArchivePath)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chat.PageSize != 20 {
		t.Fatalf("expected default page size 20, got %d", cfg.Chat.PageSize)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatclient.yaml")
	if err := os.WriteFile(path, []byte("server:\n  url: http://file.example.com\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CHAT_SERVER_URL", "http://env.example.com")
	t.Setenv("CHAT_USERNAME", "bob")
	t.Setenv("CHAT_PAGE_SIZE", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.URL != "http://env.example.com" {
		t.Fatalf("env did not override url: %q", cfg.Server.URL)
	}
	if cfg.Server.Username != "bob" || cfg.Chat.PageSize != 5 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestInvalidPageSize(t *testing.T) {
	t.Setenv("CHAT_PAGE_SIZE", "twenty")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for invalid page size")
	}
}
