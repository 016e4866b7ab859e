package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/tab"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "termmux.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTree() *tab.PaneNode {
	return &tab.PaneNode{Leaf: &tab.PaneEntry{
		WindowID:   0,
		TabID:      0,
		PaneID:     0,
		Title:      "bash",
		WorkingDir: "/home/user",
		IsActive:   true,
	}}
}

func TestSaveAndLoadWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap := WindowSnapshot{WindowID: 1, Workspace: "default", UpdatedAt: time.Now().Truncate(time.Second), Tree: sampleTree()}
	if err := s.SaveWindow(ctx, snap); err != nil {
		t.Fatalf("SaveWindow: %v", err)
	}

	got, err := s.LoadWindow(ctx, 1)
	if err != nil {
		t.Fatalf("LoadWindow: %v", err)
	}
	if got == nil {
		t.Fatalf("expected a snapshot, got nil")
	}
	if got.Workspace != "default" || got.Tree.Leaf.Title != "bash" {
		t.Fatalf("got = %+v", got)
	}
}

func TestLoadWindowMissingReturnsNil(t *testing.T) {
	s := openTestStore(t)
	got, err := s.LoadWindow(context.Background(), 99)
	if err != nil {
		t.Fatalf("LoadWindow: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a missing window, got %+v", got)
	}
}

func TestSaveWindowUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap := WindowSnapshot{WindowID: 2, Workspace: "default", UpdatedAt: time.Now(), Tree: sampleTree()}
	if err := s.SaveWindow(ctx, snap); err != nil {
		t.Fatalf("SaveWindow: %v", err)
	}
	snap.Workspace = "work"
	if err := s.SaveWindow(ctx, snap); err != nil {
		t.Fatalf("SaveWindow (update): %v", err)
	}

	got, err := s.LoadWindow(ctx, 2)
	if err != nil {
		t.Fatalf("LoadWindow: %v", err)
	}
	if got.Workspace != "work" {
		t.Fatalf("workspace = %q, want work", got.Workspace)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("LoadAll returned %d rows, want 1 (upsert must not duplicate)", len(all))
	}
}

func TestDeleteWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap := WindowSnapshot{WindowID: 3, Workspace: "default", UpdatedAt: time.Now(), Tree: sampleTree()}
	if err := s.SaveWindow(ctx, snap); err != nil {
		t.Fatalf("SaveWindow: %v", err)
	}
	if err := s.DeleteWindow(ctx, 3); err != nil {
		t.Fatalf("DeleteWindow: %v", err)
	}
	got, err := s.LoadWindow(ctx, 3)
	if err != nil {
		t.Fatalf("LoadWindow: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestLoadAllMultipleWindows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, wid := range []id.WindowId{10, 11, 12} {
		snap := WindowSnapshot{WindowID: wid, Workspace: "default", UpdatedAt: time.Now(), Tree: sampleTree()}
		if err := s.SaveWindow(ctx, snap); err != nil {
			t.Fatalf("SaveWindow(%d): %v", wid, err)
		}
	}
	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("LoadAll returned %d rows, want 3", len(all))
	}
}

func TestSaveAllPersistsEverySnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.SaveAll(ctx, []WindowSnapshot{
		{WindowID: 20, Workspace: "default", UpdatedAt: time.Now(), Tree: sampleTree()},
		{WindowID: 21, Workspace: "default", UpdatedAt: time.Now(), Tree: sampleTree()},
	})

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("LoadAll returned %d rows, want 2", len(all))
	}
}
