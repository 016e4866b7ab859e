// Package window implements Window: an ordered sequence of tabs bound to
// one workspace, with active/last-active tracking and dead-tab pruning.
package window

import (
	"strconv"
	"sync"

	"github.com/loppo-llc/termmux/internal/config"
	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/muxerr"
	"github.com/loppo-llc/termmux/internal/tab"
)

// Position is an optional on-screen placement hint, carried opaquely by
// the Mux and front-ends; the core never interprets it.
type Position struct {
	X, Y          int
	Width, Height int
}

// Window owns an ordered sequence of tabs and tracks which is active.
type Window struct {
	mu sync.Mutex

	id    id.WindowId
	tabs  []*tab.Tab

	activeIndex      int
	lastActiveTabID  id.TabId
	hasLastActiveTab bool

	workspace string
	title     string
	position  *Position

	cfg *config.Window
}

// New creates an empty Window in the given workspace.
func New(windowID id.WindowId, workspace string, cfg *config.Window) *Window {
	if cfg == nil {
		cfg = &config.Window{}
	}
	return &Window{id: windowID, workspace: workspace, cfg: cfg}
}

func (w *Window) ID() id.WindowId { return w.id }

func (w *Window) Workspace() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.workspace
}

func (w *Window) SetWorkspace(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.workspace = name
}

func (w *Window) Title() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.title
}

func (w *Window) SetTitle(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.title = title
}

func (w *Window) SetPosition(p *Position) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.position = p
}

func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tabs)
}

func (w *Window) ActiveIndex() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.activeIndex
}

// TabIds returns the ordered sequence of tab ids currently in the window.
func (w *Window) TabIds() []id.TabId {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]id.TabId, len(w.tabs))
	for i, t := range w.tabs {
		ids[i] = t.ID()
	}
	return ids
}

// ActiveTab returns the tab at activeIndex, or nil if the window is empty.
func (w *Window) ActiveTab() *tab.Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.activeIndex < 0 || w.activeIndex >= len(w.tabs) {
		return nil
	}
	return w.tabs[w.activeIndex]
}

func (w *Window) hasTabID(tabID id.TabId) bool {
	for _, t := range w.tabs {
		if t.ID() == tabID {
			return true
		}
	}
	return false
}

// Push appends tab to the end. Rejects duplicate tab ids.
func (w *Window) Push(t *tab.Tab) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hasTabID(t.ID()) {
		return &muxerr.Duplicate{Kind: "tab", ID: tabIDString(t.ID())}
	}
	w.tabs = append(w.tabs, t)
	return nil
}

// Insert places tab at index, shifting later tabs right. Rejects duplicate
// tab ids.
func (w *Window) Insert(index int, t *tab.Tab) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hasTabID(t.ID()) {
		return &muxerr.Duplicate{Kind: "tab", ID: tabIDString(t.ID())}
	}
	if index < 0 || index > len(w.tabs) {
		return &muxerr.InvalidIndex{Kind: "tab", Idx: index}
	}
	w.tabs = append(w.tabs, nil)
	copy(w.tabs[index+1:], w.tabs[index:])
	w.tabs[index] = t
	return nil
}

// RemoveByID removes the tab with the given id, fixing up the active
// index. Returns the removed tab, or nil if not found.
func (w *Window) RemoveByID(tabID id.TabId) *tab.Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, t := range w.tabs {
		if t.ID() == tabID {
			return w.removeAtLocked(i)
		}
	}
	return nil
}

// RemoveByIdx removes the tab at idx, fixing up the active index.
func (w *Window) RemoveByIdx(idx int) *tab.Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	if idx < 0 || idx >= len(w.tabs) {
		return nil
	}
	return w.removeAtLocked(idx)
}

func (w *Window) removeAtLocked(idx int) *tab.Tab {
	removed := w.tabs[idx]
	w.tabs = append(w.tabs[:idx], w.tabs[idx+1:]...)

	if w.hasLastActiveTab && w.lastActiveTabID == removed.ID() {
		w.hasLastActiveTab = false
	}

	wasActive := idx == w.activeIndex
	switch {
	case len(w.tabs) == 0:
		w.activeIndex = 0
	case idx < w.activeIndex:
		w.activeIndex--
	case wasActive:
		if w.cfg.SwitchToLastActiveTabWhenClosingTab && w.hasLastActiveTab {
			if i := w.indexOfLocked(w.lastActiveTabID); i >= 0 {
				w.activeIndex = i
				break
			}
		}
		if w.activeIndex >= len(w.tabs) {
			w.activeIndex = len(w.tabs) - 1
		}
	}
	return removed
}

func (w *Window) indexOfLocked(tabID id.TabId) int {
	for i, t := range w.tabs {
		if t.ID() == tabID {
			return i
		}
	}
	return -1
}

// SaveAndThenSetActive records the current active tab as last_active_tab_id
// before switching to idx.
func (w *Window) SaveAndThenSetActive(idx int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if idx < 0 || idx >= len(w.tabs) {
		return &muxerr.InvalidIndex{Kind: "tab", Idx: idx}
	}
	if w.activeIndex >= 0 && w.activeIndex < len(w.tabs) {
		w.lastActiveTabID = w.tabs[w.activeIndex].ID()
		w.hasLastActiveTab = true
	}
	w.activeIndex = idx
	return nil
}

// SetActiveWithoutSaving switches the active index without touching
// last_active_tab_id, calling FocusChanged(false) on the outgoing tab's
// active pane. A no-op when idx is already active.
func (w *Window) SetActiveWithoutSaving(idx int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if idx < 0 || idx >= len(w.tabs) {
		return &muxerr.InvalidIndex{Kind: "tab", Idx: idx}
	}
	if idx == w.activeIndex {
		return nil
	}
	if w.activeIndex >= 0 && w.activeIndex < len(w.tabs) {
		if p := w.tabs[w.activeIndex].GetActivePane(); p != nil {
			p.FocusChanged(false)
		}
	}
	w.activeIndex = idx
	return nil
}

// PruneDeadTabs runs each tab's own prune, then removes any tab that is
// dead or absent from liveTabIDs. Returns the ids of tabs removed
// outright and the ids of every pane a tab's own prune removed, whether or
// not that tab then survives.
func (w *Window) PruneDeadTabs(liveTabIDs map[id.TabId]struct{}) (removedIDs []id.TabId, removedPaneIDs []id.PaneId) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range w.tabs {
		panes, _ := t.PruneDeadPanes()
		removedPaneIDs = append(removedPaneIDs, panes...)
	}

	var kept []*tab.Tab
	for _, t := range w.tabs {
		_, live := liveTabIDs[t.ID()]
		if t.IsDead() || !live {
			removedIDs = append(removedIDs, t.ID())
			continue
		}
		kept = append(kept, t)
	}
	if len(removedIDs) == 0 {
		return nil, removedPaneIDs
	}

	oldActive := id.TabId(0)
	hadActive := w.activeIndex >= 0 && w.activeIndex < len(w.tabs)
	if hadActive {
		oldActive = w.tabs[w.activeIndex].ID()
	}
	w.tabs = kept
	if len(w.tabs) == 0 {
		w.activeIndex = 0
		return removedIDs, removedPaneIDs
	}
	if hadActive {
		if i := w.indexOfLocked(oldActive); i >= 0 {
			w.activeIndex = i
			return removedIDs, removedPaneIDs
		}
	}
	if w.activeIndex >= len(w.tabs) {
		w.activeIndex = len(w.tabs) - 1
	}
	return removedIDs, removedPaneIDs
}

// IsEmpty reports whether the window has no tabs left.
func (w *Window) IsEmpty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tabs) == 0
}

func tabIDString(t id.TabId) string {
	return strconv.FormatUint(uint64(t), 10)
}
