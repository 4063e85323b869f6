package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort            = 8080
	defaultDownloadDir     = "downloads"
	defaultHistoryDB       = "data/history.db"
	defaultHistoryLimit    = 500
	defaultMaxConcurrent   = 5
	defaultCancelGraceSecs = 30
	defaultAppID           = "com.venom120.ytdownloader"
)

// Config describes runtime configuration for the service.
type Config struct {
	Port        int    `yaml:"port"`
	DownloadDir string `yaml:"download_dir"`
	// AppID is the static shared secret expected in the X-App-ID header (and
	// the app_id WebSocket query parameter).
	AppID string `yaml:"app_id"`
	// YTDLPPath is the yt-dlp executable; resolved from PATH when empty.
	YTDLPPath   string `yaml:"ytdlp_path"`
	CookiesFile string `yaml:"cookies_file"`

	MaxConcurrentDownloads int `yaml:"max_concurrent_downloads"`
	// CancelGraceSeconds bounds how long a worker waits for a canceled fetch
	// to unwind before detaching from it.
	CancelGraceSeconds int    `yaml:"cancel_grace_seconds"`
	HistoryDB          string `yaml:"history_db"`
	HistoryLimit       int    `yaml:"history_limit"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Port:                   defaultPort,
		DownloadDir:            defaultDownloadDir,
		AppID:                  defaultAppID,
		MaxConcurrentDownloads: defaultMaxConcurrent,
		CancelGraceSeconds:     defaultCancelGraceSecs,
		HistoryDB:              defaultHistoryDB,
		HistoryLimit:           defaultHistoryLimit,
	}
}

// Load reads YAML config from the provided path. If the file does not exist
// or is empty, defaults are returned with no error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	fileData, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(fileData) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(fileData, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = defaultDownloadDir
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = defaultHistoryDB
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.CancelGraceSeconds <= 0 {
		cfg.CancelGraceSeconds = defaultCancelGraceSecs
	}
	// values < 1 would deadlock the worker pool, reject them explicitly
	if cfg.MaxConcurrentDownloads < 1 {
		return cfg, fmt.Errorf("invalid max_concurrent_downloads: %d (must be >= 1)", cfg.MaxConcurrentDownloads)
	}
	return cfg, nil
}

// CancelGrace returns the cancel grace period as a duration.
func (c Config) CancelGrace() time.Duration {
	return time.Duration(c.CancelGraceSeconds) * time.Second
}
