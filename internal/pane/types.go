package pane

// TerminalSize describes a pane or tab's renderable dimensions. rows and
// cols are authoritative; pixel_width/pixel_height/dpi are advisory and
// only used to recompute per-cell pixel sizes on resize.
type TerminalSize struct {
	Rows        int
	Cols        int
	PixelWidth  int
	PixelHeight int
	DPI         int
}

// CellPixelSize returns the per-cell pixel dimensions implied by this size,
// or (0, 0) if rows/cols are not yet known.
func (t TerminalSize) CellPixelSize() (w, h float64) {
	if t.Rows <= 0 || t.Cols <= 0 {
		return 0, 0
	}
	return float64(t.PixelWidth) / float64(t.Cols), float64(t.PixelHeight) / float64(t.Rows)
}

// Valid reports whether the size satisfies rows >= 1, cols >= 1.
func (t TerminalSize) Valid() bool { return t.Rows >= 1 && t.Cols >= 1 }

// CursorShape and CursorVisibility mirror the small enumerations a
// terminal emulator needs to render a cursor; the mux only stores and
// forwards these, it never interprets them.
type CursorShape int

const (
	CursorShapeDefault CursorShape = iota
	CursorShapeBlinkingBlock
	CursorShapeSteadyBlock
	CursorShapeBlinkingUnderline
	CursorShapeSteadyUnderline
	CursorShapeBlinkingBar
	CursorShapeSteadyBar
)

type CursorVisibility int

const (
	CursorVisibleVisible CursorVisibility = iota
	CursorVisibleHidden
)

// StableCursorPosition locates the cursor using a stable row index: a
// monotonically growing logical row number within the pane's history that
// does not shift when older rows are evicted from scrollback.
type StableCursorPosition struct {
	X          int
	Y          int64 // stable row index
	Shape      CursorShape
	Visibility CursorVisibility
}

// Line is one physical row of terminal output.
type Line struct {
	Text string
	// Dirty doubles as a "this line continues on the next physical line"
	// flag for logical-line reassembly.
	Dirty bool
	Seqno uint64
}
