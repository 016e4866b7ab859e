// Package store persists the window/tab/pane layout tree to a SQLite
// database: one row per window, keyed by window id, holding the
// window's PaneNode tree JSON-encoded.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/tab"
)

const schema = `
CREATE TABLE IF NOT EXISTS windows (
	window_id  INTEGER PRIMARY KEY,
	workspace  TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	pane_tree  TEXT NOT NULL
);
`

// WindowSnapshot is one window's persisted layout, ready to hand to
// tab.BuildFromPaneTree once restored.
type WindowSnapshot struct {
	WindowID  id.WindowId
	Workspace string
	UpdatedAt time.Time
	Tree      *tab.PaneNode
}

// Store persists window snapshots to a SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the SQLite database at path and ensures its
// schema exists.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveWindow upserts a single window's layout tree. SaveAll calls it for
// each snapshot of the periodic cron sweep.
func (s *Store) SaveWindow(ctx context.Context, snap WindowSnapshot) error {
	data, err := json.Marshal(snap.Tree)
	if err != nil {
		return fmt.Errorf("marshal pane tree: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO windows (window_id, workspace, updated_at, pane_tree)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(window_id) DO UPDATE SET
			workspace = excluded.workspace,
			updated_at = excluded.updated_at,
			pane_tree = excluded.pane_tree
	`, uint64(snap.WindowID), snap.Workspace, snap.UpdatedAt.Format(time.RFC3339), string(data))
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("save window snapshot failed", "window_id", uint64(snap.WindowID), "err", err)
		}
		return err
	}
	return nil
}

// SaveAll persists every window in snaps, used by the cron-driven
// periodic snapshot sweep. Individual failures are logged, not fatal to
// the sweep as a whole.
func (s *Store) SaveAll(ctx context.Context, snaps []WindowSnapshot) {
	for _, snap := range snaps {
		_ = s.SaveWindow(ctx, snap)
	}
}

// DeleteWindow removes a window's persisted snapshot, e.g. once the
// window itself has been closed.
func (s *Store) DeleteWindow(ctx context.Context, windowID id.WindowId) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM windows WHERE window_id = ?`, uint64(windowID))
	return err
}

// LoadWindow returns a single window's persisted snapshot. It reports
// (nil, nil) if no row exists for windowID.
func (s *Store) LoadWindow(ctx context.Context, windowID id.WindowId) (*WindowSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT workspace, updated_at, pane_tree FROM windows WHERE window_id = ?
	`, uint64(windowID))

	var workspace, updatedAt, paneTree string
	if err := row.Scan(&workspace, &updatedAt, &paneTree); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s.decodeRow(windowID, workspace, updatedAt, paneTree)
}

// LoadAll returns every persisted window snapshot, for restoring the full
// mux state at startup.
func (s *Store) LoadAll(ctx context.Context) ([]WindowSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT window_id, workspace, updated_at, pane_tree FROM windows`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WindowSnapshot
	for rows.Next() {
		var windowID uint64
		var workspace, updatedAt, paneTree string
		if err := rows.Scan(&windowID, &workspace, &updatedAt, &paneTree); err != nil {
			return nil, err
		}
		snap, err := s.decodeRow(id.WindowId(windowID), workspace, updatedAt, paneTree)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping corrupt window snapshot", "window_id", windowID, "err", err)
			}
			continue
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

func (s *Store) decodeRow(windowID id.WindowId, workspace, updatedAt, paneTree string) (*WindowSnapshot, error) {
	var node tab.PaneNode
	if err := json.Unmarshal([]byte(paneTree), &node); err != nil {
		return nil, fmt.Errorf("unmarshal pane tree: %w", err)
	}
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		t = time.Time{}
	}
	return &WindowSnapshot{WindowID: windowID, Workspace: workspace, UpdatedAt: t, Tree: &node}, nil
}
