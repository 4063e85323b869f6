package ytdlp

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Venom120/Youtube-downloader/internal/media"
)

// progressPrefix tags machine-readable progress lines so they never collide
// with yt-dlp's own output or the printed file path.
const progressPrefix = "dlp-progress"

// signalPollInterval is how often the watcher re-reads the cooperative
// pause/cancel signals while the process runs.
const signalPollInterval = 200 * time.Millisecond

// Fetch downloads url into the configured directory and returns the final
// file path. onProgress fires for every progress line yt-dlp emits; the
// cooperative signals are honored by suspending (SIGSTOP) or killing the
// process group.
func (c *Client) Fetch(
	ctx context.Context,
	url string,
	format media.Format,
	isPlaylist bool,
	onProgress media.ProgressFunc,
	shouldCancel func() bool,
	shouldPause func() bool,
) (string, error) {
	args := c.fetchArgs(url, format, isPlaylist)

	cmd := exec.Command(c.bin, args...)
	// Own process group, so SIGSTOP/SIGKILL also reach ffmpeg children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("yt-dlp stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start yt-dlp: %w", err)
	}

	procDone := make(chan struct{})
	canceled := make(chan struct{}, 1)
	go c.watchSignals(ctx, cmd, procDone, canceled, shouldCancel, shouldPause)

	var lastPath string
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if downloaded, total, ok := parseProgressLine(line); ok {
			if onProgress != nil {
				onProgress(downloaded, total)
			}
			continue
		}
		if line != "" {
			// --print after_move:filepath emits the finished path; for a
			// playlist the last one stands for the batch.
			lastPath = line
		}
	}

	waitErr := cmd.Wait()
	close(procDone)

	select {
	case <-canceled:
		return "", media.ErrCanceled
	default:
	}
	if ctx.Err() != nil {
		return "", media.ErrCanceled
	}
	if waitErr != nil {
		if msg := lastStderrLine(stderr.String()); msg != "" {
			return "", fmt.Errorf("yt-dlp: %s", msg)
		}
		return "", fmt.Errorf("yt-dlp: %w", waitErr)
	}
	if lastPath == "" {
		return "", fmt.Errorf("yt-dlp reported no output file")
	}
	return lastPath, nil
}

func (c *Client) fetchArgs(url string, format media.Format, isPlaylist bool) []string {
	args := []string{
		"--newline",
		"--no-warnings",
		"--progress-template",
		progressPrefix + " %(progress.downloaded_bytes)s %(progress.total_bytes,progress.total_bytes_estimate)s",
		"--print", "after_move:filepath",
		"--no-simulate",
		"-o", filepath.Join(c.downloadDir, "%(title)s.%(ext)s"),
	}
	if format == media.FormatMP3 {
		args = append(args,
			"-f", "bestaudio/best",
			"--extract-audio",
			"--audio-format", "mp3",
			"--audio-quality", "192K",
		)
	} else {
		args = append(args,
			"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
			"--merge-output-format", "mp4",
		)
	}
	if isPlaylist {
		args = append(args, "--yes-playlist")
	} else {
		args = append(args, "--no-playlist")
	}
	args = c.withCookies(args)
	return append(args, url)
}

// watchSignals polls the cooperative signals while the process runs. Pause
// toggles SIGSTOP/SIGCONT on the process group; cancel (or context shutdown)
// kills it.
func (c *Client) watchSignals(
	ctx context.Context,
	cmd *exec.Cmd,
	procDone <-chan struct{},
	canceled chan<- struct{},
	shouldCancel func() bool,
	shouldPause func() bool,
) {
	pgid := -cmd.Process.Pid
	paused := false
	ticker := time.NewTicker(signalPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-procDone:
			return
		case <-ctx.Done():
			c.kill(pgid, paused)
			return
		case <-ticker.C:
		}
		if shouldCancel != nil && shouldCancel() {
			select {
			case canceled <- struct{}{}:
			default:
			}
			c.kill(pgid, paused)
			return
		}
		if shouldPause == nil {
			continue
		}
		if wantPause := shouldPause(); wantPause != paused {
			sig := syscall.SIGSTOP
			if !wantPause {
				sig = syscall.SIGCONT
			}
			if err := syscall.Kill(pgid, sig); err != nil {
				log.Warn().Err(err).Int("pgid", pgid).Str("signal", sig.String()).Msg("signal yt-dlp failed")
				return
			}
			paused = wantPause
		}
	}
}

// kill resumes a stopped group first so SIGKILL is delivered promptly.
func (c *Client) kill(pgid int, paused bool) {
	if paused {
		_ = syscall.Kill(pgid, syscall.SIGCONT)
	}
	_ = syscall.Kill(pgid, syscall.SIGKILL)
}

// parseProgressLine decodes "dlp-progress <downloaded> <total>" lines. total
// is 0 while yt-dlp has no size estimate yet ("NA"). Byte counts may be
// floats when they come from total_bytes_estimate.
func parseProgressLine(line string) (downloaded, total int64, ok bool) {
	rest, found := strings.CutPrefix(line, progressPrefix+" ")
	if !found {
		return 0, 0, false
	}
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return 0, 0, false
	}
	downloaded, ok = parseByteCount(fields[0])
	if !ok {
		return 0, 0, false
	}
	total, _ = parseByteCount(fields[1])
	return downloaded, total, true
}

func parseByteCount(s string) (int64, bool) {
	if s == "" || s == "NA" || s == "None" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int64(f), true
}
