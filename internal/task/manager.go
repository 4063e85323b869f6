package task

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Venom120/Youtube-downloader/internal/hub"
	"github.com/Venom120/Youtube-downloader/internal/media"
)

// History receives finished task snapshots for durable, bounded retention.
type History interface {
	Record(snap Snapshot) error
}

// Options configures a Manager.
type Options struct {
	// MaxConcurrent bounds how many fetches run in parallel. Queued tasks wait
	// for a free slot in FIFO order.
	MaxConcurrent int
	// KeepFinished is how many finished records stay queryable in memory.
	KeepFinished int
	// CancelGrace is how long the worker waits for the fetch collaborator to
	// observe a cancel signal before detaching from it.
	CancelGrace time.Duration
	// History, when set, receives every finished snapshot.
	History History
}

const (
	defaultMaxConcurrent = 5
	defaultCancelGrace   = 30 * time.Second
)

// Manager owns the task store, the worker pool and the control surface. It is
// the only component that mutates task records besides the pause/cancel
// signals it sets on callers' behalf.
type Manager struct {
	store     *Store
	events    *hub.Hub[Event]
	fetcher   media.Fetcher
	history   History
	semaphore chan struct{}
	workersWG sync.WaitGroup

	mu          sync.Mutex
	baseCtx     context.Context
	cancelGrace time.Duration
}

func NewManager(fetcher media.Fetcher, events *hub.Hub[Event], opts Options) *Manager {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.CancelGrace <= 0 {
		opts.CancelGrace = defaultCancelGrace
	}
	return &Manager{
		store:       NewStore(opts.KeepFinished),
		events:      events,
		fetcher:     fetcher,
		history:     opts.History,
		semaphore:   make(chan struct{}, opts.MaxConcurrent),
		baseCtx:     context.Background(),
		cancelGrace: opts.CancelGrace,
	}
}

// SetBaseContext sets the context under which fetches run. Intended to be set
// at process startup and cancelled during shutdown.
func (m *Manager) SetBaseContext(ctx context.Context) {
	m.mu.Lock()
	m.baseCtx = ctx
	m.mu.Unlock()
}

func (m *Manager) baseContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseCtx
}

// Download creates a queued task and hands it to the worker pool. It never
// fails; fetch problems surface later as the task's terminal state.
func (m *Manager) Download(subjectURL, title string, format media.Format, isPlaylist bool) Snapshot {
	t := m.store.Create(subjectURL, title, format, isPlaylist)
	log.Info().Str("task_id", t.ID()).Str("url", subjectURL).Str("format", string(format)).
		Bool("playlist", isPlaylist).Msg("download task created")
	m.workersWG.Add(1)
	go func() {
		defer m.workersWG.Done()
		m.runTask(t)
	}()
	return m.snapshot(t)
}

// Pause succeeds only while the task is queued or downloading. Unknown ids
// and invalid transitions return false, never an error.
func (m *Manager) Pause(id string) bool {
	t, ok := m.store.Get(id)
	if !ok {
		return false
	}
	if !t.pause() {
		return false
	}
	log.Info().Str("task_id", id).Msg("download paused")
	return true
}

// Resume succeeds only while the task is paused.
func (m *Manager) Resume(id string) bool {
	t, ok := m.store.Get(id)
	if !ok {
		return false
	}
	if !t.resume() {
		return false
	}
	log.Info().Str("task_id", id).Msg("download resumed")
	return true
}

// Cancel succeeds unless the task is already terminal. The canceled state is
// recorded immediately while the worker unwinds asynchronously; calling Cancel
// twice returns true then false.
func (m *Manager) Cancel(id string) bool {
	t, ok := m.store.Get(id)
	if !ok {
		return false
	}
	if !t.cancel() {
		return false
	}
	log.Info().Str("task_id", id).Msg("download cancel requested")
	return true
}

// Status returns a snapshot of the task, or false for an unknown id.
func (m *Manager) Status(id string) (Snapshot, bool) {
	t, ok := m.store.Get(id)
	if !ok {
		return Snapshot{}, false
	}
	return m.snapshot(t), true
}

// List returns snapshots of every known task in creation order.
func (m *Manager) List() []Snapshot {
	tasks := m.store.ListAll()
	out := make([]Snapshot, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, m.snapshot(t))
	}
	return out
}

// Remove drops a task from the store. Running tasks are canceled first.
func (m *Manager) Remove(id string) bool {
	t, ok := m.store.Get(id)
	if !ok {
		return false
	}
	t.cancel()
	m.store.Remove(id)
	return true
}

// WaitAll blocks until all in-flight workers finish or the context is done.
// Returns true if all workers finished.
func (m *Manager) WaitAll(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		m.workersWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) snapshot(t *Task) Snapshot {
	snap := t.Snapshot()
	snap.Active = m.store.IsActive(t.ID())
	return snap
}
