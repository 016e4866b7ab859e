// Package pane implements the Pane contract and its PTY-backed local
// implementation. A Pane represents one terminal view backed, usually,
// by a PTY child process; the Mux is its exclusive owner.
package pane

import (
	"time"

	"github.com/loppo-llc/termmux/internal/id"
)

// SearchPattern selects how Search matches text.
type SearchPattern struct {
	CaseSensitive   string
	CaseInsensitive string
	Regex           string
}

// EraseMode selects how much of a pane's history erase_scrollback clears.
type EraseMode int

const (
	EraseScrollbackOnly EraseMode = iota
	EraseScrollbackAndViewport
)

// CachePolicy controls whether an accessor may block to refresh cached
// data or must return the last-known value immediately.
type CachePolicy int

const (
	FetchImmediate CachePolicy = iota
	AllowStale
)

// SearchResult is one match returned by Search. EndY always equals StartY
// in this implementation: no multi-row matches.
type SearchResult struct {
	StartY, EndY   int64
	StartX, EndX   int
	MatchID        int
}

// KeyEvent and MouseEvent are opaque payloads the pane forwards to its PTY
// after translating through whatever keymap/mouse-mode policy the caller
// supplies; the mux core does not interpret key/mouse semantics itself.
type KeyEvent struct {
	Key  string
	Mods uint8
}

type MouseEvent struct {
	X, Y   int
	Button int
	Kind   int // press, release, move, wheel — caller-defined encoding
}

// Pane is the public contract every pane implementation (local or
// remote) must provide.
type Pane interface {
	PaneID() id.PaneId
	DomainID() id.DomainId

	GetCursorPosition() StableCursorPosition
	GetCurrentSeqno() uint64
	GetChangedSince(start, end int64, seqno uint64) *RangeSet
	GetLines(start, end int64) (firstIndex int64, lines []Line)
	GetLogicalLines(start, end int64) []Line
	GetDimensions() TerminalSize
	GetTitle() string

	SendPaste(text string) error
	Resize(size TerminalSize) error
	KeyDown(ev KeyEvent) error
	KeyUp(ev KeyEvent) error
	MouseEvent(ev MouseEvent) error

	IsDead() bool
	Kill()

	Palette() Palette
	EraseScrollback(mode EraseMode)
	FocusChanged(focused bool)

	HasUnseenOutput() bool
	ClearUnseenOutput()
	CanCloseWithoutPrompting(reason string) bool

	Search(pattern SearchPattern, startY, endY int64, limit int) []SearchResult

	IsMouseGrabbed() bool
	IsAltScreenActive() bool
	GetCurrentWorkingDir(policy CachePolicy) string
	GetForegroundProcessName(policy CachePolicy) string
	TTYName() string
	ExitBehaviorString() string
}

// Palette is a static color palette for rendering; termmux only ever
// returns a default, the way the source leaves theming to the front-end.
type Palette struct {
	Foreground, Background string
	Ansi                    [16]string
}

// DefaultPalette is the fallback palette() result.
func DefaultPalette() Palette {
	return Palette{
		Foreground: "#e0e0e0",
		Background: "#101010",
		Ansi: [16]string{
			"#000000", "#cc0000", "#4e9a06", "#c4a000",
			"#3465a4", "#75507b", "#06989a", "#d3d7cf",
			"#555753", "#ef2929", "#8ae234", "#fce94f",
			"#729fcf", "#ad7fa8", "#34e2e2", "#eeeeec",
		},
	}
}

// clockNow lets tests stub time without touching the wall clock.
var clockNow = time.Now
