package tab

import (
	"testing"

	"github.com/loppo-llc/termmux/internal/config"
	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/pane"
)

func newTestTab(t *testing.T, size pane.TerminalSize) (*Tab, *fakePane) {
	t.Helper()
	p1 := newFakePane(1, size)
	tb := New(id.TabId(1), size, p1, &config.Tab{})
	return tb, p1
}

// A horizontal split divides columns, leaving rows untouched.
func TestHorizontalSplit(t *testing.T) {
	size := pane.TerminalSize{Rows: 24, Cols: 80}
	tb, _ := newTestTab(t, size)
	p2 := newFakePane(2, size)

	err := tb.Split(0, SplitRequest{Direction: Horizontal, TargetIsSecond: true, Size: PercentSize(50)}, p2)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if got := tb.PanesCount(); got != 2 {
		t.Fatalf("PanesCount = %d, want 2", got)
	}
	if got := tb.ActiveLeafIndex(); got != 1 {
		t.Fatalf("ActiveLeafIndex = %d, want 1", got)
	}

	if tb.root.SplitInfo.First.Cols != 40 {
		t.Errorf("first.cols = %d, want 40", tb.root.SplitInfo.First.Cols)
	}
	if tb.root.SplitInfo.Second.Cols != 39 {
		t.Errorf("second.cols = %d, want 39", tb.root.SplitInfo.Second.Cols)
	}
	if tb.root.SplitInfo.First.Rows != 24 || tb.root.SplitInfo.Second.Rows != 24 {
		t.Errorf("rows changed by a horizontal split: first=%d second=%d", tb.root.SplitInfo.First.Rows, tb.root.SplitInfo.Second.Rows)
	}
}

// Resizing rows on a horizontal split must not disturb the column split.
func TestResizePerpendicular(t *testing.T) {
	size := pane.TerminalSize{Rows: 24, Cols: 80}
	tb, p1 := newTestTab(t, size)
	p2 := newFakePane(2, size)
	if err := tb.Split(0, SplitRequest{Direction: Horizontal, TargetIsSecond: true, Size: PercentSize(50)}, p2); err != nil {
		t.Fatalf("Split: %v", err)
	}

	tb.Resize(pane.TerminalSize{Rows: 30, Cols: 80})

	if p1.dims.Rows != 30 || p2.dims.Rows != 30 {
		t.Errorf("rows not propagated: p1=%d p2=%d", p1.dims.Rows, p2.dims.Rows)
	}
	if p1.dims.Cols != 40 || p2.dims.Cols != 39 {
		t.Errorf("columns changed by a row-only resize: p1=%d p2=%d", p1.dims.Cols, p2.dims.Cols)
	}
}

// Directional activation moves to the adjacent pane, and is a no-op at an edge.
func TestDirectionalNavigation(t *testing.T) {
	size := pane.TerminalSize{Rows: 24, Cols: 80}
	tb, _ := newTestTab(t, size)
	p2 := newFakePane(2, size)
	if err := tb.Split(0, SplitRequest{Direction: Horizontal, TargetIsSecond: true, Size: PercentSize(50)}, p2); err != nil {
		t.Fatalf("Split: %v", err)
	}
	// active is now the second (right) leaf; return to the left leaf first.
	if err := tb.SetActiveLeaf(0); err != nil {
		t.Fatalf("SetActiveLeaf: %v", err)
	}

	if !tb.ActivatePaneDirection(NavRight) {
		t.Fatalf("ActivatePaneDirection(Right) returned false")
	}
	if got := tb.ActiveLeafIndex(); got != 1 {
		t.Fatalf("ActiveLeafIndex after Right = %d, want 1", got)
	}

	// no pane further right: no-op.
	if tb.ActivatePaneDirection(NavRight) {
		t.Fatalf("ActivatePaneDirection(Right) should be a no-op at the rightmost pane")
	}
	if got := tb.ActiveLeafIndex(); got != 1 {
		t.Fatalf("ActiveLeafIndex after no-op Right = %d, want unchanged 1", got)
	}
}

func TestToggleZoomRestoresSize(t *testing.T) {
	size := pane.TerminalSize{Rows: 24, Cols: 80}
	tb, p1 := newTestTab(t, size)
	p2 := newFakePane(2, size)
	if err := tb.Split(0, SplitRequest{Direction: Horizontal, TargetIsSecond: true, Size: PercentSize(50)}, p2); err != nil {
		t.Fatalf("Split: %v", err)
	}
	if err := tb.SetActiveLeaf(0); err != nil {
		t.Fatalf("SetActiveLeaf: %v", err)
	}

	tb.ToggleZoom()
	if !tb.IsZoomed() {
		t.Fatalf("expected zoomed")
	}
	if p1.dims.Cols != 80 {
		t.Errorf("zoomed pane not resized to full width: got %d", p1.dims.Cols)
	}

	panes := tb.IterPanes()
	if len(panes) != 1 || !panes[0].IsZoomed {
		t.Fatalf("IterPanes while zoomed should yield one synthetic entry, got %+v", panes)
	}

	tb.ToggleZoom()
	if tb.IsZoomed() {
		t.Fatalf("expected unzoomed")
	}
	if p1.dims.Cols != 40 {
		t.Errorf("unzoom did not restore split size: got %d", p1.dims.Cols)
	}
}

func TestPruneDeadPanes(t *testing.T) {
	size := pane.TerminalSize{Rows: 24, Cols: 80}
	tb, p1 := newTestTab(t, size)
	p2 := newFakePane(2, size)
	if err := tb.Split(0, SplitRequest{Direction: Horizontal, TargetIsSecond: true, Size: PercentSize(50)}, p2); err != nil {
		t.Fatalf("Split: %v", err)
	}
	p1.Kill()

	removed, dead := tb.PruneDeadPanes()
	if len(removed) != 1 {
		t.Fatalf("removed = %v, want 1 id", removed)
	}
	if dead {
		t.Fatalf("tab should survive with one live pane left")
	}
	if got := tb.PanesCount(); got != 1 {
		t.Fatalf("PanesCount after prune = %d, want 1", got)
	}
}

func TestPruneDeadPanesEmptiesTab(t *testing.T) {
	size := pane.TerminalSize{Rows: 24, Cols: 80}
	tb, p1 := newTestTab(t, size)
	p1.Kill()

	removed, dead := tb.PruneDeadPanes()
	if len(removed) != 1 || !dead {
		t.Fatalf("removed=%v dead=%v, want 1 id,true", removed, dead)
	}
}

// Serializing a split, zoomed tab to a PaneNode and rebuilding from it
// preserves the leaf count, the active leaf and the zoomed leaf.
func TestSerializeRoundTrip(t *testing.T) {
	size := pane.TerminalSize{Rows: 24, Cols: 80}
	tb, _ := newTestTab(t, size)
	p2 := newFakePane(2, size)
	if err := tb.Split(0, SplitRequest{Direction: Horizontal, TargetIsSecond: true, Size: PercentSize(50)}, p2); err != nil {
		t.Fatalf("Split: %v", err)
	}
	tb.ToggleZoom()

	node := tb.CodecPaneTree(id.WindowId(0), "default", func(p pane.Pane, leafIndex int, isActive, isZoomed bool) PaneEntry {
		return PaneEntry{
			PaneID: p.PaneID(), IsActive: isActive, IsZoomed: isZoomed,
			Size: p.GetDimensions(), Workspace: "default",
		}
	})

	byID := map[id.PaneId]pane.Pane{1: tb.root.Left.Pane, 2: p2}
	rebuilt, err := BuildFromPaneTree(id.TabId(2), tb.Size(), &config.Tab{}, node, func(entry PaneEntry) (pane.Pane, error) {
		return byID[entry.PaneID], nil
	})
	if err != nil {
		t.Fatalf("BuildFromPaneTree: %v", err)
	}

	if rebuilt.PanesCount() != tb.PanesCount() {
		t.Fatalf("leaf count mismatch: got %d want %d", rebuilt.PanesCount(), tb.PanesCount())
	}
	if rebuilt.zoomedPane != tb.zoomedPane {
		t.Errorf("zoomed leaf mismatch: got %d want %d", rebuilt.zoomedPane, tb.zoomedPane)
	}
	if rebuilt.activeLeafIndex != tb.activeLeafIndex {
		t.Errorf("active leaf mismatch: got %d want %d", rebuilt.activeLeafIndex, tb.activeLeafIndex)
	}
}
