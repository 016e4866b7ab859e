package window

import (
	"testing"

	"github.com/loppo-llc/termmux/internal/config"
	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/pane"
	"github.com/loppo-llc/termmux/internal/tab"
)

type fakePane struct {
	paneID id.PaneId
	dead   bool
	dims   pane.TerminalSize
}

var _ pane.Pane = (*fakePane)(nil)

func (f *fakePane) PaneID() id.PaneId                                       { return f.paneID }
func (f *fakePane) DomainID() id.DomainId                                   { return 0 }
func (f *fakePane) GetCursorPosition() pane.StableCursorPosition            { return pane.StableCursorPosition{} }
func (f *fakePane) GetCurrentSeqno() uint64                                 { return 0 }
func (f *fakePane) GetChangedSince(s, e int64, seq uint64) *pane.RangeSet   { return &pane.RangeSet{} }
func (f *fakePane) GetLines(s, e int64) (int64, []pane.Line)               { return s, nil }
func (f *fakePane) GetLogicalLines(s, e int64) []pane.Line                 { return nil }
func (f *fakePane) GetDimensions() pane.TerminalSize                       { return f.dims }
func (f *fakePane) GetTitle() string                                       { return "" }
func (f *fakePane) SendPaste(text string) error                            { return nil }
func (f *fakePane) Resize(size pane.TerminalSize) error                    { f.dims = size; return nil }
func (f *fakePane) KeyDown(ev pane.KeyEvent) error                         { return nil }
func (f *fakePane) KeyUp(ev pane.KeyEvent) error                            { return nil }
func (f *fakePane) MouseEvent(ev pane.MouseEvent) error                    { return nil }
func (f *fakePane) IsDead() bool                                           { return f.dead }
func (f *fakePane) Kill()                                                  { f.dead = true }
func (f *fakePane) Palette() pane.Palette                                  { return pane.DefaultPalette() }
func (f *fakePane) EraseScrollback(mode pane.EraseMode)                    {}
func (f *fakePane) FocusChanged(focused bool)                              {}
func (f *fakePane) HasUnseenOutput() bool                                  { return false }
func (f *fakePane) ClearUnseenOutput()                                     {}
func (f *fakePane) CanCloseWithoutPrompting(reason string) bool            { return true }
func (f *fakePane) Search(p pane.SearchPattern, sy, ey int64, l int) []pane.SearchResult {
	return nil
}
func (f *fakePane) IsMouseGrabbed() bool                                      { return false }
func (f *fakePane) IsAltScreenActive() bool                                   { return false }
func (f *fakePane) GetCurrentWorkingDir(policy pane.CachePolicy) string       { return "" }
func (f *fakePane) GetForegroundProcessName(policy pane.CachePolicy) string   { return "" }
func (f *fakePane) TTYName() string                                           { return "" }
func (f *fakePane) ExitBehaviorString() string                                { return "" }

func newTestTab(tabID id.TabId, paneID id.PaneId) (*tab.Tab, *fakePane) {
	size := pane.TerminalSize{Rows: 24, Cols: 80}
	p := &fakePane{paneID: paneID, dims: size}
	return tab.New(tabID, size, p, &config.Tab{}), p
}

func TestPushRejectsDuplicate(t *testing.T) {
	w := New(id.WindowId(1), "default", nil)
	t1, _ := newTestTab(1, 1)
	t2, _ := newTestTab(1, 2)
	if err := w.Push(t1); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := w.Push(t2); err == nil {
		t.Fatalf("expected duplicate tab id error")
	}
}

func TestRemoveByIdxClampsActiveIndex(t *testing.T) {
	w := New(id.WindowId(1), "default", nil)
	t1, _ := newTestTab(1, 1)
	t2, _ := newTestTab(2, 2)
	t3, _ := newTestTab(3, 3)
	for _, tb := range []*tab.Tab{t1, t2, t3} {
		if err := w.Push(tb); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if err := w.SaveAndThenSetActive(2); err != nil {
		t.Fatalf("SaveAndThenSetActive: %v", err)
	}

	removed := w.RemoveByIdx(2)
	if removed == nil || removed.ID() != 3 {
		t.Fatalf("RemoveByIdx(2) = %v, want tab 3", removed)
	}
	if got := w.ActiveIndex(); got != 1 {
		t.Fatalf("ActiveIndex after removing the active last tab = %d, want 1", got)
	}
}

func TestRemoveByIdxSwitchesToLastActive(t *testing.T) {
	cfg := &config.Window{SwitchToLastActiveTabWhenClosingTab: true}
	w := New(id.WindowId(1), "default", cfg)
	t1, _ := newTestTab(1, 1)
	t2, _ := newTestTab(2, 2)
	t3, _ := newTestTab(3, 3)
	for _, tb := range []*tab.Tab{t1, t2, t3} {
		if err := w.Push(tb); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	// active starts at 0; save-and-switch to 1, making tab 1(id=1) last-active.
	if err := w.SaveAndThenSetActive(1); err != nil {
		t.Fatalf("SaveAndThenSetActive: %v", err)
	}
	if err := w.SaveAndThenSetActive(2); err != nil {
		t.Fatalf("SaveAndThenSetActive: %v", err)
	}

	removed := w.RemoveByIdx(2)
	if removed == nil || removed.ID() != 3 {
		t.Fatalf("removed = %v, want tab 3", removed)
	}
	if got := w.ActiveIndex(); got != 1 {
		t.Fatalf("ActiveIndex = %d, want 1 (switch-to-last-active)", got)
	}
}

func TestPruneDeadTabs(t *testing.T) {
	w := New(id.WindowId(1), "default", nil)
	t1, p1 := newTestTab(1, 1)
	t2, _ := newTestTab(2, 2)
	if err := w.Push(t1); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := w.Push(t2); err != nil {
		t.Fatalf("Push: %v", err)
	}
	p1.Kill()

	live := map[id.TabId]struct{}{1: {}, 2: {}}
	removed, removedPanes := w.PruneDeadTabs(live)
	if len(removed) != 1 || removed[0] != 1 {
		t.Fatalf("PruneDeadTabs removed = %v, want [1]", removed)
	}
	if len(removedPanes) != 1 || removedPanes[0] != p1.PaneID() {
		t.Fatalf("PruneDeadTabs removedPanes = %v, want [%v]", removedPanes, p1.PaneID())
	}
	if w.Len() != 1 {
		t.Fatalf("Len = %d, want 1", w.Len())
	}
}
