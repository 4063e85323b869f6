package task

import (
	"sync"
	"time"

	"github.com/Venom120/Youtube-downloader/internal/media"
)

// Status is the lifecycle state of a download task.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusCanceled    Status = "canceled"
	StatusError       Status = "error"
)

// IsTerminal reports whether no further transitions are permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled || s == StatusError
}

const canceledMessage = "Canceled"

// Task is one download attempt tracked end-to-end. Identity fields (id, url,
// format, playlist flag) are immutable after creation; live fields are mutated
// by the owning worker and the control surface under the record lock. Readers
// only ever see value copies taken via Snapshot.
type Task struct {
	id         string
	subjectURL string
	title      string
	format     media.Format
	isPlaylist bool
	createdAt  time.Time

	mu              sync.Mutex
	status          Status
	progress        float64
	downloadedBytes int64
	totalBytes      int64
	errMsg          string
	filePath        string
	finishedAt      time.Time

	signals *Signals
}

func (t *Task) ID() string { return t.id }

// Snapshot is the externally visible, immutable view of a task.
type Snapshot struct {
	ID              string       `json:"downloadId"`
	SubjectURL      string       `json:"url"`
	Title           string       `json:"title,omitempty"`
	Format          media.Format `json:"format"`
	IsPlaylist      bool         `json:"isPlaylist"`
	Status          Status       `json:"status"`
	Progress        float64      `json:"progress"`
	DownloadedBytes int64        `json:"downloadedBytes"`
	TotalBytes      int64        `json:"totalBytes"`
	Error           string       `json:"error,omitempty"`
	FilePath        string       `json:"filePath,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	FinishedAt      time.Time    `json:"finishedAt,omitzero"`
	// Active is true while a worker still owns the task. A canceled task with
	// Active set was *requested* to stop but is not yet confirmed stopped.
	Active bool `json:"active"`
}

// Snapshot returns a consistent copy of the task. Active is filled in by the
// store, which knows whether a worker still owns the record.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		ID:              t.id,
		SubjectURL:      t.subjectURL,
		Title:           t.title,
		Format:          t.format,
		IsPlaylist:      t.isPlaylist,
		Status:          t.status,
		Progress:        t.progress,
		DownloadedBytes: t.downloadedBytes,
		TotalBytes:      t.totalBytes,
		Error:           t.errMsg,
		FilePath:        t.filePath,
		CreatedAt:       t.createdAt,
		FinishedAt:      t.finishedAt,
	}
}

func (t *Task) currentStatus() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// markDownloading moves queued -> downloading. Left alone when the task was
// paused or canceled while still waiting for a worker slot.
func (t *Task) markDownloading() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusQueued {
		t.status = StatusDownloading
	}
}

// updateProgress records byte counts from the fetch collaborator. The percent
// value only moves when the collaborator knows the total, and never backwards
// while the task is running.
func (t *Task) updateProgress(downloaded, total int64) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return Snapshot{}, false
	}
	t.downloadedBytes = downloaded
	if total > 0 {
		t.totalBytes = total
		if pct := 100 * float64(downloaded) / float64(total); pct > t.progress {
			t.progress = pct
		}
	}
	return Snapshot{
		ID:              t.id,
		Status:          t.status,
		Progress:        t.progress,
		DownloadedBytes: t.downloadedBytes,
		TotalBytes:      t.totalBytes,
	}, true
}

// markCompleted finishes the task successfully. Returns false when a terminal
// state (cancel) won the race.
func (t *Task) markCompleted(filePath string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return false
	}
	t.status = StatusCompleted
	t.progress = 100
	t.filePath = filePath
	t.finishedAt = time.Now()
	return true
}

// markFailed moves the task to the error state with a user-facing message.
func (t *Task) markFailed(msg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return false
	}
	t.status = StatusError
	t.errMsg = msg
	t.finishedAt = time.Now()
	return true
}

// markCanceled moves the task to canceled. Used both by the control surface
// (optimistic, before the worker unwinds) and by the worker when the fetch
// aborts on the cancel signal.
func (t *Task) markCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return false
	}
	t.status = StatusCanceled
	t.errMsg = canceledMessage
	t.finishedAt = time.Now()
	return true
}

// pause sets the pause signal. Valid from queued or downloading only; pausing
// a paused or terminal task is ignored, not an error.
func (t *Task) pause() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusQueued && t.status != StatusDownloading {
		return false
	}
	t.status = StatusPaused
	t.signals.setPause(true)
	return true
}

// resume clears the pause signal. Valid from paused only.
func (t *Task) resume() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPaused {
		return false
	}
	t.status = StatusDownloading
	t.signals.setPause(false)
	return true
}

// cancel requests cooperative cancellation and records the canceled state
// immediately. "Canceled" here means requested and accepted; the worker
// confirms by dropping the task from the active index and publishing the
// Canceled event once the collaborator has unwound.
func (t *Task) cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return false
	}
	t.status = StatusCanceled
	t.errMsg = canceledMessage
	t.finishedAt = time.Now()
	t.signals.requestCancel()
	return true
}
