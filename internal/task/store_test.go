package task

import (
	"testing"

	"github.com/Venom120/Youtube-downloader/internal/media"
)

func TestStoreCreateAndGet(t *testing.T) {
	s := NewStore(10)
	created := s.Create("https://e.org/v", "Title", media.FormatMP3, false)

	got, ok := s.Get(created.ID())
	if !ok || got != created {
		t.Fatalf("expected to get back the same record")
	}
	snap := got.Snapshot()
	if snap.Status != StatusQueued || snap.Format != media.FormatMP3 || snap.Title != "Title" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !s.IsActive(created.ID()) {
		t.Fatalf("new task should be active")
	}
}

func TestStoreListAllKeepsInsertionOrder(t *testing.T) {
	s := NewStore(10)
	first := s.Create("https://e.org/1", "", media.FormatMP4, false)
	second := s.Create("https://e.org/2", "", media.FormatMP4, false)
	third := s.Create("https://e.org/3", "", media.FormatMP4, true)

	all := s.ListAll()
	if len(all) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(all))
	}
	if all[0] != first || all[1] != second || all[2] != third {
		t.Fatalf("listing not in insertion order")
	}
}

func TestStoreDeactivateEvictsOldestFinished(t *testing.T) {
	s := NewStore(1)
	a := s.Create("https://e.org/a", "", media.FormatMP4, false)
	b := s.Create("https://e.org/b", "", media.FormatMP4, false)
	c := s.Create("https://e.org/c", "", media.FormatMP4, false)

	a.markCompleted("/tmp/a.mp4")
	s.Deactivate(a.ID())
	b.markFailed("boom")
	s.Deactivate(b.ID())

	// Retention of one finished record: a must be gone, b kept, c untouched.
	if _, ok := s.Get(a.ID()); ok {
		t.Fatalf("oldest finished record should have been evicted")
	}
	if _, ok := s.Get(b.ID()); !ok {
		t.Fatalf("most recent finished record should remain queryable")
	}
	if _, ok := s.Get(c.ID()); !ok || !s.IsActive(c.ID()) {
		t.Fatalf("active record must never be evicted")
	}
	if got := len(s.ListAll()); got != 2 {
		t.Fatalf("expected 2 remaining tasks, got %d", got)
	}
}

func TestStoreRemove(t *testing.T) {
	s := NewStore(10)
	created := s.Create("https://e.org/v", "", media.FormatMP4, false)
	s.Remove(created.ID())
	if _, ok := s.Get(created.ID()); ok {
		t.Fatalf("removed task should be gone")
	}
	if len(s.ListAll()) != 0 {
		t.Fatalf("listing should be empty after remove")
	}
}
