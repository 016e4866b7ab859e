package pane

import (
	"bytes"
	"log/slog"
	"os"
	"sync"

	"github.com/loppo-llc/termmux/internal/config"
	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/ptyio"
)

// scrollbackCeiling and scrollbackFloor bound the pane's line buffer in
// bytes of reconstructed line text rather than a raw byte ring, since
// Line/seqno/get_changed_since need row addressing.
const (
	scrollbackCeiling = 100 * 1024
	scrollbackFloor   = 50 * 1024
)

// LocalSpawnConfig is everything LocalPane needs at construction time.
type LocalSpawnConfig struct {
	PaneID         id.PaneId
	DomainID       id.DomainId
	CommandDescription string
	Size           TerminalSize
	Config         *config.Config
	Logger         *slog.Logger
	// OnOutput is invoked (never blocking) every time new data is
	// appended, mirroring the Mux's PaneOutput notification.
	OnOutput func(id.PaneId)
	// OnExit is invoked once the process-state machine reaches dead or
	// dead_pending_close, so the owner (a Domain/Mux) can schedule a
	// deferred prune.
	OnExit func(p *LocalPane)
}

// LocalPane is the PTY-backed Pane implementation.
type LocalPane struct {
	id       id.PaneId
	domainID id.DomainId
	cfg      *config.Config
	logger   *slog.Logger
	onOutput func(id.PaneId)
	onExit   func(p *LocalPane)

	pty ptyio.PTY

	mu              sync.Mutex
	title           string
	cmdDescription  string
	dims            TerminalSize
	cursor          StableCursorPosition
	seqno           uint64
	lines           []Line
	baseY           int64 // stable row index of lines[0]
	partial         []byte
	scrollbackBytes int

	userVars map[string]string

	unseenOutput     bool
	mouseGrabbed     bool
	altScreenActive  bool
	currentDir       string
	foregroundProc   string
	ttyName          string

	state     ProcessState
	killed    bool
	exitCode  *int
	processStateReady bool
}

// NewLocal constructs a LocalPane already backed by a running PTY child.
// The caller (a Domain) owns spawning the PTY and passes it in.
func NewLocal(p ptyio.PTY, cfg LocalSpawnConfig) *LocalPane {
	lp := &LocalPane{
		id:             cfg.PaneID,
		domainID:       cfg.DomainID,
		cfg:            cfg.Config,
		logger:         cfg.Logger,
		onOutput:       cfg.OnOutput,
		onExit:         cfg.OnExit,
		pty:            p,
		cmdDescription: cfg.CommandDescription,
		dims:           cfg.Size,
		userVars:       make(map[string]string),
		state:          StateRunning,
		ttyName:        cfg.CommandDescription,
	}
	go lp.readLoop()
	go lp.waitLoop()
	return lp
}

func (p *LocalPane) PaneID() id.PaneId     { return p.id }
func (p *LocalPane) DomainID() id.DomainId { return p.domainID }

func (p *LocalPane) readLoop() {
	buf := make([]byte, 32*1024)
	for {
		n, err := p.pty.Read(buf)
		if n > 0 {
			p.appendOutput(buf[:n])
			if p.onOutput != nil {
				p.onOutput(p.id)
			}
		}
		if err != nil {
			return
		}
	}
}

// appendOutput reassembles newline-delimited Lines from raw PTY bytes.
// This is coarse scrollback storage in place of a real VT100 parser:
// lines are split on '\n', and a line still awaiting its terminator is
// flagged Dirty=true as a continuation marker.
func (p *LocalPane) appendOutput(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.partial = append(p.partial, b...)
	for {
		idx := bytes.IndexByte(p.partial, '\n')
		if idx < 0 {
			break
		}
		text := string(bytes.TrimRight(p.partial[:idx], "\r"))
		p.partial = p.partial[idx+1:]
		if len(p.lines) > 0 && p.lines[len(p.lines)-1].Dirty {
			p.popLine()
		}
		p.pushLine(text, false)
	}
	// surface the undelimited remainder as a dirty (continuing) line so
	// get_lines has something to show before the next '\n' arrives.
	if len(p.partial) > 0 {
		text := string(p.partial)
		if len(p.lines) > 0 && p.lines[len(p.lines)-1].Dirty {
			p.popLine()
		}
		p.pushLine(text, true)
	}
	p.unseenOutput = true
	p.evictIfNeeded()
}

func (p *LocalPane) pushLine(text string, dirty bool) {
	p.seqno++
	p.lines = append(p.lines, Line{Text: text, Dirty: dirty, Seqno: p.seqno})
	p.scrollbackBytes += len(text)
	p.cursor = StableCursorPosition{
		X: len([]rune(text)),
		Y: p.baseY + int64(len(p.lines)-1),
	}
}

func (p *LocalPane) popLine() {
	last := p.lines[len(p.lines)-1]
	p.scrollbackBytes -= len(last.Text)
	p.lines = p.lines[:len(p.lines)-1]
}

// evictIfNeeded drops the oldest lines once scrollbackCeiling is
// exceeded, stopping once at least scrollbackFloor bytes have been
// freed.
func (p *LocalPane) evictIfNeeded() {
	if p.scrollbackBytes <= scrollbackCeiling {
		return
	}
	freed := 0
	needed := scrollbackCeiling - scrollbackFloor
	i := 0
	for i < len(p.lines) && freed < needed {
		freed += len(p.lines[i].Text)
		i++
	}
	if i > 0 {
		p.lines = p.lines[i:]
		p.baseY += int64(i)
		p.scrollbackBytes -= freed
	}
}

func (p *LocalPane) waitLoop() {
	exitCode, _ := p.pty.Wait()
	p.handleExit(exitCode)
}

func (p *LocalPane) handleExit(exitCode int) {
	p.mu.Lock()
	killed := p.killed
	cfg := p.cfg
	clean := cfg != nil && cfg.Pane.IsCleanExitCode(exitCode)
	policy := config.ExitBehaviorCloseOnCleanExit
	messaging := config.MessagingBrief
	if cfg != nil {
		policy = cfg.Pane.ExitBehavior
		messaging = cfg.Pane.ExitBehaviorMessaging
	}
	next, banner := exitTransition(policy, messaging, p.cmdDescription, exitCode, clean, killed)
	p.state = next
	p.exitCode = &exitCode
	p.processStateReady = true
	if banner != "" {
		p.pushLine(banner, false)
	}
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Info("pane process exited", "pane_id", p.id, "exit_code", exitCode, "state", next.String())
	}
	if p.onExit != nil {
		p.onExit(p)
	}
}

func (p *LocalPane) GetCursorPosition() StableCursorPosition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

func (p *LocalPane) GetCurrentSeqno() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seqno
}

func (p *LocalPane) GetChangedSince(start, end int64, seqno uint64) *RangeSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	rs := &RangeSet{}
	for i, line := range p.lines {
		y := p.baseY + int64(i)
		if y < start || y >= end {
			continue
		}
		if line.Seqno > seqno {
			rs.Insert(y)
		}
	}
	return rs
}

// GetLines materializes rows in [start, end). firstIndex may be clamped
// to what the buffer still holds.
func (p *LocalPane) GetLines(start, end int64) (int64, []Line) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if start < p.baseY {
		start = p.baseY
	}
	lastY := p.baseY + int64(len(p.lines))
	if end > lastY {
		end = lastY
	}
	if end <= start {
		return start, nil
	}
	from := start - p.baseY
	to := end - p.baseY
	out := make([]Line, to-from)
	copy(out, p.lines[from:to])
	return start, out
}

// GetLogicalLines rewraps physical rows whose Dirty flag marks
// continuation into logical lines, bounded to <=1024 chars each.
func (p *LocalPane) GetLogicalLines(start, end int64) []Line {
	const maxLogicalLen = 1024
	first, rows := p.GetLines(start, end)
	_ = first
	var out []Line
	var cur Line
	building := false
	flush := func() {
		if building {
			out = append(out, cur)
			building = false
		}
	}
	for _, r := range rows {
		if !building {
			cur = Line{Text: r.Text, Seqno: r.Seqno}
			building = true
		} else {
			if len(cur.Text)+len(r.Text) > maxLogicalLen {
				flush()
				cur = Line{Text: r.Text, Seqno: r.Seqno}
				building = true
			} else {
				cur.Text += r.Text
				if r.Seqno > cur.Seqno {
					cur.Seqno = r.Seqno
				}
			}
		}
		if !r.Dirty {
			flush()
		}
	}
	flush()
	return out
}

func (p *LocalPane) GetDimensions() TerminalSize {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dims
}

func (p *LocalPane) GetTitle() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.title != "" {
		return p.title
	}
	if p.foregroundProc != "" {
		return p.foregroundProc
	}
	return p.cmdDescription
}

func (p *LocalPane) SendPaste(text string) error {
	_, err := p.pty.Write([]byte(text))
	return err
}

func (p *LocalPane) Resize(size TerminalSize) error {
	if err := p.pty.Resize(ptyio.Winsize{
		Rows:        uint16(size.Rows),
		Cols:        uint16(size.Cols),
		PixelWidth:  uint16(size.PixelWidth),
		PixelHeight: uint16(size.PixelHeight),
	}); err != nil {
		return err
	}
	p.mu.Lock()
	p.dims = size
	p.mu.Unlock()
	return nil
}

func (p *LocalPane) KeyDown(ev KeyEvent) error {
	return p.writeInput([]byte(ev.Key))
}

func (p *LocalPane) KeyUp(ev KeyEvent) error { return nil }

func (p *LocalPane) MouseEvent(ev MouseEvent) error {
	return nil
}

func (p *LocalPane) writeInput(b []byte) error {
	_, err := p.pty.Write(b)
	return err
}

// IsDead promotes a killed dead_pending_close pane to dead here.
func (p *LocalPane) IsDead() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateDeadPendingClose && p.killed {
		p.state = StateDead
	}
	return p.state == StateDead
}

// Kill is idempotent: running signals the child and sets killed; dead
// pending close just marks killed.
func (p *LocalPane) Kill() {
	p.mu.Lock()
	state := p.state
	p.killed = true
	p.mu.Unlock()

	if state == StateRunning {
		_ = p.pty.Close()
	}
}

func (p *LocalPane) Palette() Palette { return DefaultPalette() }

func (p *LocalPane) EraseScrollback(mode EraseMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = nil
	p.scrollbackBytes = 0
	p.seqno++
	if mode == EraseScrollbackAndViewport {
		p.cursor = StableCursorPosition{}
	}
}

func (p *LocalPane) FocusChanged(focused bool) {
	// Notification only; no PTY side effect.
}

func (p *LocalPane) HasUnseenOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unseenOutput
}

func (p *LocalPane) ClearUnseenOutput() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unseenOutput = false
}

func (p *LocalPane) CanCloseWithoutPrompting(reason string) bool {
	if p.IsDead() {
		return true
	}
	p.mu.Lock()
	state := p.state
	proc := p.foregroundProc
	cfg := p.cfg
	p.mu.Unlock()
	if state == StateDeadPendingClose {
		return true
	}
	if cfg != nil && cfg.Pane.SkipsCloseConfirmation(proc) {
		return true
	}
	return false
}

func (p *LocalPane) Search(pattern SearchPattern, startY, endY int64, limit int) []SearchResult {
	first, rows := p.GetLines(startY, endY)
	return searchLines(rows, first, pattern, limit)
}

func (p *LocalPane) IsMouseGrabbed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mouseGrabbed
}

func (p *LocalPane) IsAltScreenActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.altScreenActive
}

func (p *LocalPane) GetCurrentWorkingDir(policy CachePolicy) string {
	p.mu.Lock()
	dir := p.currentDir
	pid := 0
	if p.pty != nil {
		pid = p.pty.Pid()
	}
	p.mu.Unlock()
	if policy == AllowStale || pid <= 0 {
		return dir
	}
	if resolved, err := os.Readlink(cwdLinkForPid(pid)); err == nil {
		p.mu.Lock()
		p.currentDir = resolved
		p.mu.Unlock()
		return resolved
	}
	return dir
}

func (p *LocalPane) GetForegroundProcessName(policy CachePolicy) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.foregroundProc
}

func (p *LocalPane) TTYName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ttyName
}

func (p *LocalPane) ExitBehaviorString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cfg == nil {
		return string(config.ExitBehaviorCloseOnCleanExit)
	}
	return string(p.cfg.Pane.ExitBehavior)
}

// ExitCode returns the child's exit code, if it has exited.
func (p *LocalPane) ExitCode() *int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// State returns the current process state, without the IsDead promotion.
func (p *LocalPane) State() ProcessState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

var _ Pane = (*LocalPane)(nil)
