package tab

import (
	"sync"

	"github.com/loppo-llc/termmux/internal/config"
	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/muxerr"
	"github.com/loppo-llc/termmux/internal/pane"
)

// Tab owns the binary pane-layout tree plus the bookkeeping (active
// leaf, zoom, recency) needed to drive split/resize/navigate.
type Tab struct {
	mu sync.Mutex

	id     id.TabId
	title  string
	size   pane.TerminalSize
	cfg    *config.Tab

	root *Node

	activeLeafIndex int
	zoomedPane      int // preorder leaf index, -1 when not zoomed
	sizeBeforeZoom  pane.TerminalSize

	recency     map[int]int
	recencyTick int

	dead bool
}

// New creates a Tab with a single pane occupying the whole size.
func New(tabID id.TabId, size pane.TerminalSize, p pane.Pane, cfg *config.Tab) *Tab {
	if cfg == nil {
		cfg = &config.Tab{}
	}
	return &Tab{
		id:         tabID,
		size:       size,
		cfg:        cfg,
		root:       leafNode(p),
		zoomedPane: -1,
		recency:    map[int]int{0: 1},
		recencyTick: 1,
	}
}

func (t *Tab) ID() id.TabId { return t.id }

func (t *Tab) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

func (t *Tab) SetTitle(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.title = title
}

func (t *Tab) Size() pane.TerminalSize {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

func (t *Tab) IsZoomed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.zoomedPane >= 0
}

func (t *Tab) ActiveLeafIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeLeafIndex
}

// IsDead reports whether every pane in the tree has exited and the tab has
// already been pruned once (see PruneDeadPanes).
func (t *Tab) IsDead() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dead
}

func (t *Tab) tagRecency(leafIndex int) {
	t.recencyTick++
	t.recency[leafIndex] = t.recencyTick
}

// PanesCount returns the number of panes currently in the tree (1 while
// zoomed is irrelevant to this count; zoom only affects display).
func (t *Tab) PanesCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countLeaves(t.root)
}

// GetActivePane returns the pane at the active leaf index.
func (t *Tab) GetActivePane() pane.Pane {
	t.mu.Lock()
	defer t.mu.Unlock()
	path := pathToLeaf(t.root, t.activeLeafIndex)
	if path == nil {
		return nil
	}
	return path[len(path)-1].Pane
}

// Split inserts newPane next to the leaf at leafIndex (or, if req.TopLevel,
// next to the whole tree), then resizes every pane to the size its split
// assigns it. Fails with CannotSplit while zoomed.
func (t *Tab) Split(leafIndex int, req SplitRequest, newPane pane.Pane) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.zoomedPane >= 0 {
		return &muxerr.CannotSplit{Reason: "tab is zoomed"}
	}
	newRoot, inserted, err := splitAndInsert(t.root, leafIndex, t.size, req, newPane)
	if err != nil {
		return err
	}
	t.root = newRoot
	if req.TargetIsSecond {
		t.activeLeafIndex = inserted
	}
	for _, leaf := range leavesPreorder(t.root, nil) {
		leaf.Pane.Resize(sizeOfLeaf(t.root, t.size, leaf))
	}
	t.tagRecency(t.activeLeafIndex)
	return nil
}

// Unsplit removes the leaf at leafIndex, promoting its sibling. If the tab
// becomes empty it is marked dead.
func (t *Tab) Unsplit(leafIndex int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	newRoot, ok := unsplitLeaf(t.root, leafIndex)
	if !ok {
		return &muxerr.InvalidIndex{Kind: "pane", Idx: leafIndex}
	}
	t.root = newRoot
	if t.root == nil {
		t.dead = true
		return nil
	}
	leaves := countLeaves(t.root)
	if t.activeLeafIndex >= leaves {
		t.activeLeafIndex = leaves - 1
	}
	if t.zoomedPane >= leaves {
		t.zoomedPane = -1
	}
	return nil
}

func (t *Tab) maybeUnzoom() {
	if t.zoomedPane < 0 {
		return
	}
	if !t.cfg.UnzoomOnSwitchPane {
		return
	}
	t.unzoomLocked()
}

// Resize changes the tab's overall size, propagating it through every
// split. While zoomed, only the zoomed pane and the stored size are
// updated. Otherwise the new size is first clamped to what the tree can
// hold, then the column and row deltas are distributed through the tree
// (uniformly on each split's perpendicular axis, one cell at a time
// alternating left/top-then-right/bottom on its along axis) before the
// resulting per-node sizes are pushed out to every leaf pane.
func (t *Tab) Resize(size pane.TerminalSize) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.zoomedPane >= 0 {
		t.size = size
		path := pathToLeaf(t.root, t.zoomedPane)
		if path != nil {
			path[len(path)-1].Pane.Resize(size)
		}
		return
	}

	minCols, minRows := minSize(t.root)
	if size.Cols < minCols {
		size.Cols = minCols
	}
	if size.Rows < minRows {
		size.Rows = minRows
	}

	deltaCols := size.Cols - t.size.Cols
	deltaRows := size.Rows - t.size.Rows
	adjustColsSize(t.root, deltaCols)
	adjustRowsSize(t.root, deltaRows)

	t.size = size
	applySizesFromSplits(t.root, size)
	for _, leaf := range leavesPreorder(t.root, nil) {
		leaf.Pane.Resize(sizeOfLeaf(t.root, size, leaf))
	}
}

// sizeOfLeaf finds the size assigned to a given leaf by walking down from
// root (whose size is rootSize), following each Split's First/Second.
func sizeOfLeaf(root *Node, rootSize pane.TerminalSize, leaf *Node) pane.TerminalSize {
	var found pane.TerminalSize
	var walk func(n *Node, size pane.TerminalSize) bool
	walk = func(n *Node, size pane.TerminalSize) bool {
		if n == leaf {
			found = size
			return true
		}
		if n.isLeaf() {
			return false
		}
		if walk(n.Left, n.SplitInfo.First) {
			return true
		}
		return walk(n.Right, n.SplitInfo.Second)
	}
	walk(root, rootSize)
	return found
}

// ResizeSplitBy nudges the internal node at splitIndex by delta cells,
// auto-unzooming first per configuration.
func (t *Tab) ResizeSplitBy(splitIndex int, delta int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.zoomedPane >= 0 {
		t.maybeUnzoom()
		if t.zoomedPane >= 0 {
			return false
		}
	}
	return resizeSplitBy(t.root, splitIndex, delta)
}

// AdjustPaneSize grows/shrinks the leaf at leafIndex along dir by delta
// cells, auto-unzooming first per configuration.
func (t *Tab) AdjustPaneSize(leafIndex int, dir Direction, delta int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.zoomedPane >= 0 {
		t.maybeUnzoom()
		if t.zoomedPane >= 0 {
			return false
		}
	}
	return adjustPaneSize(t.root, leafIndex, dir, delta)
}

// ToggleZoom zooms the active leaf to fill the whole tab, or restores
// the prior layout if already zoomed.
func (t *Tab) ToggleZoom() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.zoomedPane >= 0 {
		t.unzoomLocked()
		return
	}
	t.sizeBeforeZoom = t.size
	t.zoomedPane = t.activeLeafIndex
	path := pathToLeaf(t.root, t.activeLeafIndex)
	if path != nil {
		path[len(path)-1].Pane.Resize(t.size)
	}
}

func (t *Tab) unzoomLocked() {
	t.zoomedPane = -1
	t.size = t.sizeBeforeZoom
	applySizesFromSplits(t.root, t.size)
	for _, leaf := range leavesPreorder(t.root, nil) {
		leaf.Pane.Resize(sizeOfLeaf(t.root, t.size, leaf))
	}
}

// IterPanes returns every leaf's rendered placement. While zoomed, it
// returns a single synthetic entry covering the whole tab.
func (t *Tab) IterPanes() []PositionedPane {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.zoomedPane >= 0 {
		path := pathToLeaf(t.root, t.zoomedPane)
		if path == nil {
			return nil
		}
		p := path[len(path)-1].Pane
		return []PositionedPane{{
			Index: t.zoomedPane, Left: 0, Top: 0,
			Width: t.size.Cols, Height: t.size.Rows,
			Pane: p, IsZoomed: true, IsActive: true,
		}}
	}
	positions := iterPanes(t.root, 0, 0, t.activeLeafIndex, nil)
	for i := range positions {
		positions[i].IsActive = i == t.activeLeafIndex
	}
	return positions
}

// IterSplits returns every internal divider's rendered placement.
func (t *Tab) IterSplits() []PositionedSplit {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.zoomedPane >= 0 {
		return nil
	}
	return iterSplits(t.root, 0, 0, nil)
}

// ActivatePaneDirection moves the active leaf in the requested direction,
// auto-unzooming first per configuration.
func (t *Tab) ActivatePaneDirection(dir NavDirection) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.zoomedPane >= 0 {
		t.maybeUnzoom()
		if t.zoomedPane >= 0 {
			return false
		}
	}
	positions := iterPanes(t.root, 0, 0, t.activeLeafIndex, nil)
	next, ok := navigate(t.root, positions, t.activeLeafIndex, dir, t.recency)
	if !ok {
		return false
	}
	t.activeLeafIndex = next
	t.tagRecency(next)
	return true
}

// SetActiveLeaf jumps directly to a leaf index (e.g. mouse click).
func (t *Tab) SetActiveLeaf(leafIndex int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if leafIndex < 0 || leafIndex >= countLeaves(t.root) {
		return &muxerr.InvalidIndex{Kind: "pane", Idx: leafIndex}
	}
	t.activeLeafIndex = leafIndex
	t.tagRecency(leafIndex)
	return nil
}

// RotateClockwise and RotateCounterClockwise would cycle pane positions
// within the active split without changing the tree shape. Left
// unimplemented: rotating a subtree of arbitrary arity needs a rotation
// rule this port hasn't designed yet.
// TODO: design an N-ary rotation over pathToLeaf siblings before wiring this up.
func (t *Tab) RotateClockwise() {}

// TODO: same rotation design as RotateClockwise, reversed.
func (t *Tab) RotateCounterClockwise() {}

// SwapActiveWithIndex would exchange the active leaf's pane with the one
// at leafIndex. Left unimplemented for the same reason as the rotations.
// TODO: swap two Node.Pane pointers once sibling identity survives a resize.
func (t *Tab) SwapActiveWithIndex(leafIndex int) {}

// PruneDeadPanes removes every pane reporting IsDead. Returns the ids of
// the panes removed, in the order removed, and whether the tab itself is
// now dead (empty).
func (t *Tab) PruneDeadPanes() (removedPaneIDs []id.PaneId, dead bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	newRoot, removedPanes := removePaneIf(t.root, func(p pane.Pane) bool { return p.IsDead() })
	t.root = newRoot
	if len(removedPanes) > 0 {
		leaves := countLeaves(t.root)
		if leaves == 0 {
			t.dead = true
		} else {
			if t.activeLeafIndex >= leaves {
				t.activeLeafIndex = leaves - 1
			}
			if t.zoomedPane >= leaves {
				t.zoomedPane = -1
			}
		}
	}
	for _, p := range removedPanes {
		removedPaneIDs = append(removedPaneIDs, p.PaneID())
	}
	return removedPaneIDs, t.dead
}

// CodecPaneTree serializes the tree into its PaneNode mirror.
func (t *Tab) CodecPaneTree(windowID id.WindowId, workspace string, makeEntry func(p pane.Pane, leafIndex int, isActive, isZoomed bool) PaneEntry) *PaneNode {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := t.activeLeafIndex
	zoomed := t.zoomedPane
	return codecPaneTree(t.root, active, zoomed, makeEntry)
}

// BuildFromPaneTree reconstructs a Tab from a PaneNode, restoring active
// and zoomed leaf identity.
func BuildFromPaneTree(tabID id.TabId, size pane.TerminalSize, cfg *config.Tab, node *PaneNode, makePane func(entry PaneEntry) (pane.Pane, error)) (*Tab, error) {
	root, active, zoomed, err := buildFromPaneTree(node, makePane)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &config.Tab{}
	}
	if active < 0 {
		active = 0
	}
	t := &Tab{
		id: tabID, size: size, cfg: cfg, root: root,
		activeLeafIndex: active, zoomedPane: zoomed,
		sizeBeforeZoom: size,
		recency:        map[int]int{active: 1},
		recencyTick:    1,
	}
	return t, nil
}
