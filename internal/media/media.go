package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Extract when the URL does not resolve to a video or playlist.
	ErrNotFound = errors.New("video not found")
	// ErrCanceled is returned by Fetch when it aborted because shouldCancel reported true.
	ErrCanceled = errors.New("download canceled")
)

// Format is the requested output container.
type Format string

const (
	FormatMP4 Format = "mp4"
	FormatMP3 Format = "mp3"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMP4:
		return FormatMP4, nil
	case FormatMP3:
		return FormatMP3, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want mp4 or mp3)", s)
	}
}

// Metadata describes a video or playlist without downloading it.
type Metadata struct {
	VideoID         string `json:"videoId"`
	Title           string `json:"title"`
	ThumbnailURL    string `json:"thumbnailUrl"`
	DurationSeconds int    `json:"duration"`
	Channel         string `json:"channel"`
	ViewCount       int64  `json:"viewCount"`
	UploadDate      string `json:"uploadDate,omitempty"`
	URL             string `json:"url"`
	IsPlaylist      bool   `json:"isPlaylist"`
	PlaylistCount   int    `json:"playlistCount,omitempty"`
}

// ProgressFunc receives byte counts as the transfer advances. total may be 0
// while the source has not reported a size yet.
type ProgressFunc func(downloaded, total int64)

// Extractor resolves metadata and searches without downloading.
type Extractor interface {
	Extract(ctx context.Context, url string) (Metadata, error)
	Search(ctx context.Context, query string, maxResults int) ([]Metadata, error)
}

// Fetcher performs the actual byte transfer. It must invoke onProgress at safe
// points, poll shouldCancel (abort and return ErrCanceled once true) and
// shouldPause (suspend forward progress while true, without erroring). It
// returns the path of the finished file.
type Fetcher interface {
	Fetch(
		ctx context.Context,
		url string,
		format Format,
		isPlaylist bool,
		onProgress ProgressFunc,
		shouldCancel func() bool,
		shouldPause func() bool,
	) (string, error)
}
