package task

import (
	"sync"
	"sync/atomic"
)

// Signals is the cooperative control token handed to the fetch collaborator.
// The collaborator polls ShouldPause/ShouldCancel at safe points; preemption is
// impossible because the fetch internals are opaque. Canceled requests are also
// observable as a channel so the worker can enforce a grace deadline on
// collaborators that never poll.
type Signals struct {
	pause  atomic.Bool
	cancel atomic.Bool

	cancelOnce sync.Once
	canceled   chan struct{}

	doneOnce sync.Once
	done     chan struct{}
}

func newSignals() *Signals {
	return &Signals{
		canceled: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// ShouldPause is polled by the fetch collaborator.
func (s *Signals) ShouldPause() bool { return s.pause.Load() }

// ShouldCancel is polled by the fetch collaborator.
func (s *Signals) ShouldCancel() bool { return s.cancel.Load() }

func (s *Signals) setPause(v bool) { s.pause.Store(v) }

// requestCancel sets the cancel flag and clears the pause flag, so a paused
// task can actually unwind instead of sitting in the collaborator's pause wait.
func (s *Signals) requestCancel() {
	s.pause.Store(false)
	s.cancel.Store(true)
	s.cancelOnce.Do(func() { close(s.canceled) })
}

// Canceled is closed once cancellation has been requested.
func (s *Signals) Canceled() <-chan struct{} { return s.canceled }

// markDone records that the worker has fully unwound.
func (s *Signals) markDone() { s.doneOnce.Do(func() { close(s.done) }) }

// Done is closed when the worker has finished cleanup for this task.
func (s *Signals) Done() <-chan struct{} { return s.done }
