package task

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Venom120/Youtube-downloader/internal/media"
)

type fetchResult struct {
	path string
	err  error
}

// runTask is one worker execution unit: it waits for a pool slot, drives the
// fetch collaborator, and translates the outcome into the task's terminal
// state. Cleanup (active-index removal, history record) always runs, and the
// terminal event is published only after the task is consistent.
func (m *Manager) runTask(t *Task) {
	m.semaphore <- struct{}{}
	defer func() { <-m.semaphore }()

	ev := m.executeTask(t)

	m.store.Deactivate(t.ID())
	if m.history != nil {
		if err := m.history.Record(t.Snapshot()); err != nil {
			log.Warn().Str("task_id", t.ID()).Err(err).Msg("record task history failed")
		}
	}
	t.signals.markDone()
	if ev != nil {
		m.events.Publish(t.ID(), ev)
	}
}

// executeTask returns the terminal event for the task. Progress events are
// published from the hook as the transfer advances.
func (m *Manager) executeTask(t *Task) Event {
	id := t.ID()
	sig := t.signals

	// Canceled while still queued: terminal without ever downloading.
	if t.currentStatus().IsTerminal() {
		return Canceled{taskEvent{id}}
	}

	t.markDownloading()

	ctx := m.baseContext()
	resCh := make(chan fetchResult, 1)
	go func() {
		path, err := m.fetcher.Fetch(ctx, t.subjectURL, t.format, t.isPlaylist,
			m.progressHook(t), sig.ShouldCancel, sig.ShouldPause)
		resCh <- fetchResult{path: path, err: err}
	}()

	var res fetchResult
	select {
	case res = <-resCh:
	case <-sig.Canceled():
		return m.awaitUnwind(t, resCh)
	case <-ctx.Done():
		t.cancel()
		return m.awaitUnwind(t, resCh)
	}
	return m.settle(t, res)
}

// awaitUnwind gives the collaborator a grace period to observe the cancel
// signal. If it never does, the worker detaches: the fetch goroutine is left
// behind, the record stays canceled, and the abandonment is logged.
func (m *Manager) awaitUnwind(t *Task, resCh <-chan fetchResult) Event {
	select {
	case res := <-resCh:
		return m.settle(t, res)
	case <-time.After(m.cancelGrace):
		log.Warn().Str("task_id", t.ID()).Dur("grace", m.cancelGrace).
			Msg("fetch ignored cancel signal, detaching worker")
		return Canceled{taskEvent{t.ID()}}
	}
}

// settle converts the fetch outcome into the terminal state and event.
func (m *Manager) settle(t *Task, res fetchResult) Event {
	id := t.ID()
	switch {
	case errors.Is(res.err, media.ErrCanceled) || t.currentStatus() == StatusCanceled:
		t.markCanceled()
		log.Info().Str("task_id", id).Msg("download canceled")
		return Canceled{taskEvent{id}}
	case res.err != nil:
		kind, msg := Classify(res.err)
		t.markFailed(msg)
		log.Warn().Str("task_id", id).Str("kind", string(kind)).Err(res.err).Msg("download failed")
		return Failed{taskEvent: taskEvent{id}, Kind: kind, Message: msg}
	default:
		if !t.markCompleted(res.path) {
			// Cancel raced a successful fetch; the cancel wins.
			return Canceled{taskEvent{id}}
		}
		log.Info().Str("task_id", id).Str("path", res.path).Msg("download completed")
		return Complete{taskEvent: taskEvent{id}, Path: res.path}
	}
}

func (m *Manager) progressHook(t *Task) media.ProgressFunc {
	id := t.ID()
	return func(downloaded, total int64) {
		snap, ok := t.updateProgress(downloaded, total)
		if !ok {
			return
		}
		m.events.Publish(id, Progress{
			taskEvent:  taskEvent{id},
			Downloaded: downloaded,
			Total:      total,
			Percent:    snap.Progress,
		})
	}
}
