package task

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Venom120/Youtube-downloader/internal/media"
)

// Store is the single source of truth mapping task id to Task, plus the
// derived set of ids still owned by a worker. Safe for concurrent use by
// workers, the control surface and queriers; only map-level locking is needed
// because each record has a single writer.
type Store struct {
	mu     sync.RWMutex
	tasks  map[string]*Task
	active map[string]struct{}
	order  []string
	// keep is the number of finished records retained in memory; older
	// finished tasks are evicted once it is exceeded (durable history is the
	// history package's job).
	keep int
}

const defaultKeepFinished = 100

func NewStore(keepFinished int) *Store {
	if keepFinished <= 0 {
		keepFinished = defaultKeepFinished
	}
	return &Store{
		tasks:  make(map[string]*Task),
		active: make(map[string]struct{}),
		keep:   keepFinished,
	}
}

// Create allocates a fresh id and inserts a queued task. It never fails; ids
// are random UUIDs and are never reused.
func (s *Store) Create(subjectURL, title string, format media.Format, isPlaylist bool) *Task {
	t := &Task{
		id:         uuid.NewString(),
		subjectURL: subjectURL,
		title:      title,
		format:     format,
		isPlaylist: isPlaylist,
		createdAt:  time.Now(),
		status:     StatusQueued,
		signals:    newSignals(),
	}
	s.mu.Lock()
	s.tasks[t.id] = t
	s.active[t.id] = struct{}{}
	s.order = append(s.order, t.id)
	s.mu.Unlock()
	return t
}

// Get returns the live record. Mutating it is reserved for the owning worker
// and the control surface.
func (s *Store) Get(id string) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

// ListAll returns every known task in insertion order.
func (s *Store) ListAll() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Task, 0, len(s.order))
	for _, id := range s.order {
		if t, ok := s.tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// IsActive reports whether a worker still owns the task.
func (s *Store) IsActive(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.active[id]
	return ok
}

// Deactivate drops the task from the active index once its worker has
// unwound, and evicts the oldest finished records beyond the retention cap.
func (s *Store) Deactivate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
	finished := len(s.tasks) - len(s.active)
	if finished <= s.keep {
		return
	}
	evict := finished - s.keep
	kept := s.order[:0]
	for _, tid := range s.order {
		if _, isActive := s.active[tid]; !isActive && evict > 0 {
			delete(s.tasks, tid)
			evict--
			continue
		}
		kept = append(kept, tid)
	}
	s.order = kept
}

// Remove drops the record entirely.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
	delete(s.tasks, id)
	for i, tid := range s.order {
		if tid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
