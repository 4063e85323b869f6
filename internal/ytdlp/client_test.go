package ytdlp

import (
	"strings"
	"testing"

	"github.com/Venom120/Youtube-downloader/internal/media"
)

func TestToMetadataVideo(t *testing.T) {
	info := rawInfo{
		ID:         "abc123",
		Title:      "a video",
		Thumbnail:  "https://i.ytimg.com/vi/abc123/hq.jpg",
		Duration:   212.8,
		Channel:    "some channel",
		ViewCount:  1234,
		UploadDate: "20250102",
		WebpageURL: "https://www.youtube.com/watch?v=abc123",
	}
	m := info.toMetadata()
	if m.VideoID != "abc123" || m.Title != "a video" || m.Channel != "some channel" {
		t.Fatalf("unexpected metadata: %+v", m)
	}
	if m.DurationSeconds != 212 {
		t.Fatalf("duration should truncate to seconds, got %d", m.DurationSeconds)
	}
	if m.URL != "https://www.youtube.com/watch?v=abc123" || m.IsPlaylist {
		t.Fatalf("unexpected metadata: %+v", m)
	}
}

func TestToMetadataFallbacks(t *testing.T) {
	info := rawInfo{ID: "abc123", Uploader: "uploader name"}
	m := info.toMetadata()
	if m.Channel != "uploader name" {
		t.Fatalf("channel should fall back to uploader, got %q", m.Channel)
	}
	if m.URL != "https://youtube.com/watch?v=abc123" {
		t.Fatalf("url should be derived from the id, got %q", m.URL)
	}
}

func TestToMetadataPlaylist(t *testing.T) {
	info := rawInfo{
		Type:    "playlist",
		ID:      "PLxyz",
		Title:   "a playlist",
		Entries: []rawInfo{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	}
	m := info.toMetadata()
	if !m.IsPlaylist {
		t.Fatal("expected playlist metadata")
	}
	if m.PlaylistCount != 3 {
		t.Fatalf("playlist count should fall back to entries, got %d", m.PlaylistCount)
	}

	info.PlaylistCount = 10
	if got := info.toMetadata().PlaylistCount; got != 10 {
		t.Fatalf("explicit playlist_count should win, got %d", got)
	}
}

func TestParseProgressLine(t *testing.T) {
	cases := []struct {
		line       string
		downloaded int64
		total      int64
		ok         bool
	}{
		{"dlp-progress 1024 4096", 1024, 4096, true},
		{"dlp-progress 1024 NA", 1024, 0, true},
		{"dlp-progress 1024 None", 1024, 0, true},
		{"dlp-progress 1536.7 10485760.0", 1536, 10485760, true},
		{"dlp-progress NA 4096", 0, 0, false},
		{"dlp-progress 1024", 0, 0, false},
		{"dlp-progress 1024 4096 extra", 0, 0, false},
		{"[download] 42.0% of 10MiB", 0, 0, false},
		{"/downloads/a video.mp4", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tc := range cases {
		downloaded, total, ok := parseProgressLine(tc.line)
		if ok != tc.ok || downloaded != tc.downloaded || total != tc.total {
			t.Errorf("parseProgressLine(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tc.line, downloaded, total, ok, tc.downloaded, tc.total, tc.ok)
		}
	}
}

func TestLastStderrLine(t *testing.T) {
	stderr := strings.Join([]string{
		"WARNING: something minor",
		"ERROR: Video unavailable",
		"",
		"ERROR: This video is private",
	}, "\n")
	if got := lastStderrLine(stderr); got != "This video is private" {
		t.Fatalf("expected the last ERROR line, got %q", got)
	}

	if got := lastStderrLine("plain failure text\nmore detail"); got != "plain failure text" {
		t.Fatalf("expected first non-empty line without ERROR lines, got %q", got)
	}
	if got := lastStderrLine("  \n\n"); got != "" {
		t.Fatalf("expected empty result for blank stderr, got %q", got)
	}
}

func TestLooksLikeNotFound(t *testing.T) {
	for _, msg := range []string{
		"'htp://x' is not a valid URL",
		"Unsupported URL: https://example.com",
		"unable to extract video data",
		"This playlist does not exist",
	} {
		if !looksLikeNotFound(msg) {
			t.Errorf("looksLikeNotFound(%q) = false, want true", msg)
		}
	}
	if looksLikeNotFound("This video is private") {
		t.Error("private videos are not a not-found condition")
	}
}

func TestFetchArgsMP3(t *testing.T) {
	c := New(Options{DownloadDir: "/tmp/dl"})
	args := strings.Join(c.fetchArgs("https://youtube.com/watch?v=abc", media.FormatMP3, false), " ")

	for _, want := range []string{
		"--extract-audio",
		"--audio-format mp3",
		"--audio-quality 192K",
		"--no-playlist",
		"-o /tmp/dl/%(title)s.%(ext)s",
		"--print after_move:filepath",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("mp3 args missing %q: %s", want, args)
		}
	}
	if strings.Contains(args, "--merge-output-format") {
		t.Errorf("mp3 args must not merge video: %s", args)
	}
	if !strings.HasSuffix(args, "https://youtube.com/watch?v=abc") {
		t.Errorf("url must come last: %s", args)
	}
}

func TestFetchArgsMP4Playlist(t *testing.T) {
	c := New(Options{})
	args := strings.Join(c.fetchArgs("https://youtube.com/playlist?list=PLx", media.FormatMP4, true), " ")

	for _, want := range []string{
		"--merge-output-format mp4",
		"--yes-playlist",
		"-o downloads/%(title)s.%(ext)s",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("mp4 playlist args missing %q: %s", want, args)
		}
	}
	if strings.Contains(args, "--extract-audio") {
		t.Errorf("mp4 args must not extract audio: %s", args)
	}
}

func TestWithCookiesSkipsMissingFile(t *testing.T) {
	c := New(Options{CookiesFile: "/does/not/exist/cookies.txt"})
	args := c.withCookies([]string{"-J"})
	if len(args) != 1 {
		t.Fatalf("missing cookies file must be ignored, got %v", args)
	}

	c = New(Options{})
	if got := c.withCookies([]string{"-J"}); len(got) != 1 {
		t.Fatalf("empty cookies path must be ignored, got %v", got)
	}
}
