// Package history persists finished download tasks to SQLite so they stay
// queryable after the in-memory store evicts them. Retention is bounded: the
// oldest rows are evicted once the configured cap is exceeded.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Venom120/Youtube-downloader/internal/media"
	"github.com/Venom120/Youtube-downloader/internal/task"
)

const defaultKeep = 500

// Archive is a durable log of finished tasks. Safe for concurrent use; all
// synchronization is delegated to database/sql.
type Archive struct {
	db   *sql.DB
	keep int
}

// Open creates or opens the archive at path. keep caps the number of retained
// rows (oldest evicted first); values <= 0 use the default.
func Open(path string, keep int) (*Archive, error) {
	if keep <= 0 {
		keep = defaultKeep
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	// WAL keeps readers from blocking the worker goroutines that record rows.
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000; PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure history db: %w", err)
	}
	a := &Archive{db: db, keep: keep}
	if err := a.initTable(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) initTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS downloads (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT,
		format TEXT NOT NULL,
		is_playlist INTEGER NOT NULL,
		status TEXT NOT NULL,
		progress REAL NOT NULL,
		downloaded_bytes INTEGER NOT NULL,
		total_bytes INTEGER NOT NULL,
		error TEXT,
		file_path TEXT,
		created_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_downloads_finished_at ON downloads(finished_at);
	`
	if _, err := a.db.Exec(query); err != nil {
		return fmt.Errorf("init history table: %w", err)
	}
	return nil
}

// Record inserts or replaces the finished snapshot and evicts rows beyond the
// retention cap.
func (a *Archive) Record(snap task.Snapshot) error {
	query := `INSERT OR REPLACE INTO downloads
		(id, url, title, format, is_playlist, status, progress, downloaded_bytes, total_bytes, error, file_path, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := a.db.Exec(query,
		snap.ID, snap.SubjectURL, snap.Title, string(snap.Format), boolToInt(snap.IsPlaylist),
		string(snap.Status), snap.Progress, snap.DownloadedBytes, snap.TotalBytes,
		snap.Error, snap.FilePath, snap.CreatedAt.Unix(), snap.FinishedAt.Unix())
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	evict := `DELETE FROM downloads WHERE id NOT IN
		(SELECT id FROM downloads ORDER BY finished_at DESC, id LIMIT ?)`
	if _, err := a.db.Exec(evict, a.keep); err != nil {
		return fmt.Errorf("evict history rows: %w", err)
	}
	return nil
}

// Get returns one archived task by id.
func (a *Archive) Get(id string) (task.Snapshot, error) {
	row := a.db.QueryRow(selectColumns+` FROM downloads WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return task.Snapshot{}, task.ErrTaskNotFound
	}
	if err != nil {
		return task.Snapshot{}, fmt.Errorf("get archived download: %w", err)
	}
	return snap, nil
}

// List returns up to limit archived tasks, most recently finished first.
func (a *Archive) List(limit int) ([]task.Snapshot, error) {
	if limit <= 0 {
		limit = a.keep
	}
	rows, err := a.db.Query(selectColumns+` FROM downloads ORDER BY finished_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list archived downloads: %w", err)
	}
	defer rows.Close()

	var out []task.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archived download: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Purge drops every archived row.
func (a *Archive) Purge() error {
	if _, err := a.db.Exec(`DELETE FROM downloads`); err != nil {
		return fmt.Errorf("purge history: %w", err)
	}
	return nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

const selectColumns = `SELECT id, url, title, format, is_playlist, status, progress,
	downloaded_bytes, total_bytes, error, file_path, created_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (task.Snapshot, error) {
	var (
		snap       task.Snapshot
		format     string
		status     string
		isPlaylist int
		createdAt  int64
		finishedAt int64
	)
	err := row.Scan(&snap.ID, &snap.SubjectURL, &snap.Title, &format, &isPlaylist,
		&status, &snap.Progress, &snap.DownloadedBytes, &snap.TotalBytes,
		&snap.Error, &snap.FilePath, &createdAt, &finishedAt)
	if err != nil {
		return task.Snapshot{}, err
	}
	snap.Format = media.Format(format)
	snap.Status = task.Status(status)
	snap.IsPlaylist = isPlaylist != 0
	snap.CreatedAt = time.Unix(createdAt, 0)
	snap.FinishedAt = time.Unix(finishedAt, 0)
	return snap, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
