// Package ytdlp adapts the yt-dlp command line tool to the media collaborator
// contracts: JSON metadata extraction, search, and byte transfer with
// machine-readable progress lines. Pause maps to SIGSTOP/SIGCONT on the
// process group and cancel kills it, both driven by the cooperative signals
// polled between progress updates.
package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Venom120/Youtube-downloader/internal/media"
)

// Options configures the yt-dlp client.
type Options struct {
	// BinPath is the yt-dlp executable. Default: "yt-dlp" from PATH.
	BinPath string
	// DownloadDir is where finished files land.
	DownloadDir string
	// CookiesFile, when set and present on disk, is passed to yt-dlp so
	// age-gated and member videos resolve.
	CookiesFile string
}

type Client struct {
	bin         string
	downloadDir string
	cookiesFile string
}

func New(opts Options) *Client {
	if opts.BinPath == "" {
		opts.BinPath = "yt-dlp"
	}
	if opts.DownloadDir == "" {
		opts.DownloadDir = "downloads"
	}
	return &Client{
		bin:         opts.BinPath,
		downloadDir: opts.DownloadDir,
		cookiesFile: opts.CookiesFile,
	}
}

// rawInfo is the subset of yt-dlp's -J output the service cares about.
type rawInfo struct {
	Type          string    `json:"_type"`
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Thumbnail     string    `json:"thumbnail"`
	Duration      float64   `json:"duration"`
	Channel       string    `json:"channel"`
	Uploader      string    `json:"uploader"`
	ViewCount     int64     `json:"view_count"`
	UploadDate    string    `json:"upload_date"`
	WebpageURL    string    `json:"webpage_url"`
	PlaylistCount int       `json:"playlist_count"`
	Entries       []rawInfo `json:"entries"`
}

func (r rawInfo) toMetadata() media.Metadata {
	channel := r.Channel
	if channel == "" {
		channel = r.Uploader
	}
	url := r.WebpageURL
	if url == "" && r.ID != "" {
		url = "https://youtube.com/watch?v=" + r.ID
	}
	m := media.Metadata{
		VideoID:         r.ID,
		Title:           r.Title,
		ThumbnailURL:    r.Thumbnail,
		DurationSeconds: int(r.Duration),
		Channel:         channel,
		ViewCount:       r.ViewCount,
		UploadDate:      r.UploadDate,
		URL:             url,
	}
	if r.Type == "playlist" {
		m.IsPlaylist = true
		m.PlaylistCount = r.PlaylistCount
		if m.PlaylistCount == 0 {
			m.PlaylistCount = len(r.Entries)
		}
	}
	return m
}

// Extract resolves metadata for a video or playlist URL without downloading.
func (c *Client) Extract(ctx context.Context, url string) (media.Metadata, error) {
	args := []string{"-J", "--no-warnings", "--flat-playlist"}
	args = c.withCookies(args)
	args = append(args, url)

	out, err := c.runJSON(ctx, args)
	if err != nil {
		return media.Metadata{}, err
	}
	var info rawInfo
	if jsonErr := json.Unmarshal(out, &info); jsonErr != nil || info.ID == "" && len(info.Entries) == 0 {
		return media.Metadata{}, media.ErrNotFound
	}
	return info.toMetadata(), nil
}

// Search runs a bounded video search and returns flat metadata entries.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]media.Metadata, error) {
	if maxResults <= 0 {
		maxResults = 20
	}
	args := []string{"-J", "--no-warnings", "--flat-playlist"}
	args = c.withCookies(args)
	args = append(args, fmt.Sprintf("ytsearch%d:%s", maxResults, query))

	out, err := c.runJSON(ctx, args)
	if err != nil {
		return nil, err
	}
	var info rawInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("parse search result: %w", err)
	}
	results := make([]media.Metadata, 0, len(info.Entries))
	for _, entry := range info.Entries {
		if entry.ID == "" {
			continue
		}
		results = append(results, entry.toMetadata())
	}
	return results, nil
}

func (c *Client) runJSON(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := lastStderrLine(stderr.String())
		log.Debug().Str("bin", c.bin).Str("stderr", msg).Msg("yt-dlp metadata call failed")
		if msg == "" {
			return nil, fmt.Errorf("yt-dlp: %w", err)
		}
		if looksLikeNotFound(msg) {
			return nil, media.ErrNotFound
		}
		return nil, fmt.Errorf("yt-dlp: %s", msg)
	}
	return out, nil
}

func (c *Client) withCookies(args []string) []string {
	if c.cookiesFile == "" {
		return args
	}
	if _, err := os.Stat(c.cookiesFile); err != nil {
		return args
	}
	return append(args, "--cookies", c.cookiesFile)
}

// lastStderrLine pulls the last ERROR line (or the last non-empty line) out of
// yt-dlp's stderr, which is what users should see.
func lastStderrLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	last := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "ERROR:") {
			last = strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		} else if last == "" {
			last = line
		}
	}
	return last
}

func looksLikeNotFound(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "is not a valid url") ||
		strings.Contains(m, "unsupported url") ||
		strings.Contains(m, "unable to extract") ||
		strings.Contains(m, "does not exist")
}
