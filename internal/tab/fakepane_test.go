package tab

import (
	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/pane"
)

// fakePane is a minimal pane.Pane test double: enough state to exercise
// resize propagation and dead/alive transitions without a real PTY.
type fakePane struct {
	id   id.PaneId
	dims pane.TerminalSize
	dead bool
}

func newFakePane(paneID id.PaneId, dims pane.TerminalSize) *fakePane {
	return &fakePane{id: paneID, dims: dims}
}

var _ pane.Pane = (*fakePane)(nil)

func (f *fakePane) PaneID() id.PaneId     { return f.id }
func (f *fakePane) DomainID() id.DomainId { return 0 }

func (f *fakePane) GetCursorPosition() pane.StableCursorPosition { return pane.StableCursorPosition{} }
func (f *fakePane) GetCurrentSeqno() uint64                      { return 0 }
func (f *fakePane) GetChangedSince(start, end int64, seqno uint64) *pane.RangeSet {
	return &pane.RangeSet{}
}
func (f *fakePane) GetLines(start, end int64) (int64, []pane.Line) { return start, nil }
func (f *fakePane) GetLogicalLines(start, end int64) []pane.Line   { return nil }
func (f *fakePane) GetDimensions() pane.TerminalSize               { return f.dims }
func (f *fakePane) GetTitle() string                                { return "" }

func (f *fakePane) SendPaste(text string) error         { return nil }
func (f *fakePane) Resize(size pane.TerminalSize) error { f.dims = size; return nil }
func (f *fakePane) KeyDown(ev pane.KeyEvent) error       { return nil }
func (f *fakePane) KeyUp(ev pane.KeyEvent) error         { return nil }
func (f *fakePane) MouseEvent(ev pane.MouseEvent) error  { return nil }

func (f *fakePane) IsDead() bool { return f.dead }
func (f *fakePane) Kill()        { f.dead = true }

func (f *fakePane) Palette() pane.Palette              { return pane.DefaultPalette() }
func (f *fakePane) EraseScrollback(mode pane.EraseMode) {}
func (f *fakePane) FocusChanged(focused bool)           {}

func (f *fakePane) HasUnseenOutput() bool                      { return false }
func (f *fakePane) ClearUnseenOutput()                         {}
func (f *fakePane) CanCloseWithoutPrompting(reason string) bool { return true }

func (f *fakePane) Search(pattern pane.SearchPattern, startY, endY int64, limit int) []pane.SearchResult {
	return nil
}

func (f *fakePane) IsMouseGrabbed() bool                             { return false }
func (f *fakePane) IsAltScreenActive() bool                          { return false }
func (f *fakePane) GetCurrentWorkingDir(policy pane.CachePolicy) string { return "" }
func (f *fakePane) GetForegroundProcessName(policy pane.CachePolicy) string {
	return ""
}
func (f *fakePane) TTYName() string           { return "" }
func (f *fakePane) ExitBehaviorString() string { return "" }
