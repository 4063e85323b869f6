package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadEmptyFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("empty file must not be an error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadEmptyPathFails(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestLoadReadsValues(t *testing.T) {
	path := writeConfig(t, `
port: 9090
download_dir: /tmp/videos
app_id: com.example.app
ytdlp_path: /usr/local/bin/yt-dlp
max_concurrent_downloads: 2
cancel_grace_seconds: 10
history_db: /tmp/h.db
history_limit: 50
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 || cfg.DownloadDir != "/tmp/videos" || cfg.AppID != "com.example.app" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.YTDLPPath != "/usr/local/bin/yt-dlp" {
		t.Fatalf("unexpected ytdlp_path: %q", cfg.YTDLPPath)
	}
	if cfg.MaxConcurrentDownloads != 2 || cfg.HistoryDB != "/tmp/h.db" || cfg.HistoryLimit != 50 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.CancelGrace() != 10*time.Second {
		t.Fatalf("unexpected cancel grace: %v", cfg.CancelGrace())
	}
}

func TestLoadFillsZeroedFields(t *testing.T) {
	path := writeConfig(t, `
port: 0
download_dir: ""
history_limit: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 || cfg.DownloadDir != "downloads" || cfg.HistoryLimit != 500 {
		t.Fatalf("expected defaulted fields, got %+v", cfg)
	}
}

func TestLoadRejectsInvalidConcurrency(t *testing.T) {
	path := writeConfig(t, "max_concurrent_downloads: 0\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for max_concurrent_downloads below 1")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "port: [not a number\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
