package remotedomain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coder/websocket"

	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/pane"
)

// attachPane opens the pane-scoped I/O connection for an already-spawned
// remote pane and wraps it in a RemotePane. localID is this process's own
// id for the pane (allocated from the Mux's shared allocator); remoteID is
// what the peer calls it on its side of the wire.
func (d *Domain) attachPane(ctx context.Context, localID, remoteID id.PaneId, size pane.TerminalSize, title string) (*RemotePane, error) {
	conn, err := d.dial(ctx, fmt.Sprintf("/termmux/pane?id=%d", uint64(remoteID)))
	if err != nil {
		return nil, err
	}
	rp := &RemotePane{
		id:       localID,
		domainID: d.id,
		remoteID: remoteID,
		domain:   d,
		conn:     conn,
		dims:     size,
		title:    title,
	}
	go rp.readLoop()
	return rp, nil
}

// RemotePane is the Pane implementation for a pane living on a peer
// termmux, reached over a dedicated websocket connection. It mirrors
// LocalPane's line-reconstruction scrollback so get_lines/get_changed_since
// behave identically regardless of which Pane implementation backs a
// tab, but reconstructs lines from already-framed websocket messages
// rather than a raw PTY byte stream.
type RemotePane struct {
	id       id.PaneId
	domainID id.DomainId
	remoteID id.PaneId
	domain   *Domain
	conn     *websocket.Conn

	mu              sync.Mutex
	dims            pane.TerminalSize
	title           string
	cursor          pane.StableCursorPosition
	seqno           uint64
	lines           []pane.Line
	baseY           int64
	partial         []byte
	scrollbackBytes int
	unseenOutput    bool
	dead            bool
	killed          bool
	exitCode        *int
}

const (
	remoteScrollbackCeiling = 100 * 1024
	remoteScrollbackFloor   = 50 * 1024
)

func (p *RemotePane) PaneID() id.PaneId     { return p.id }
func (p *RemotePane) DomainID() id.DomainId { return p.domainID }

func (p *RemotePane) readLoop() {
	ctx := context.Background()
	for {
		_, b, err := p.conn.Read(ctx)
		if err != nil {
			p.handleDisconnect()
			return
		}
		var f frame
		if err := json.Unmarshal(b, &f); err != nil {
			continue
		}
		switch f.Type {
		case "output":
			var out outputWire
			if err := json.Unmarshal(f.Data, &out); err != nil {
				continue
			}
			decoded, err := base64.StdEncoding.DecodeString(out.Data)
			if err != nil {
				continue
			}
			p.appendOutput(decoded)
		case "exit":
			var ex exitWire
			_ = json.Unmarshal(f.Data, &ex)
			p.mu.Lock()
			p.dead = true
			code := ex.ExitCode
			p.exitCode = &code
			p.mu.Unlock()
			return
		}
	}
}

func (p *RemotePane) handleDisconnect() {
	p.mu.Lock()
	p.dead = true
	p.mu.Unlock()
}

func (p *RemotePane) appendOutput(b []byte) {
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
		if n := len(p.lines); n > 0 && p.lines[n-1].Dirty {
			p.scrollbackBytes -= len(p.lines[n-1].Text)
			p.lines = p.lines[:n-1]
		}
		p.pushLineLocked(text, false)
	}
	if len(p.partial) > 0 {
		text := string(p.partial)
		if len(p.lines) > 0 && p.lines[len(p.lines)-1].Dirty {
			p.lines = p.lines[:len(p.lines)-1]
		}
		p.pushLineLocked(text, true)
	}
	p.unseenOutput = true
	p.evictIfNeededLocked()
}

func (p *RemotePane) pushLineLocked(text string, dirty bool) {
	p.seqno++
	p.lines = append(p.lines, pane.Line{Text: text, Dirty: dirty, Seqno: p.seqno})
	p.scrollbackBytes += len(text)
	p.cursor = pane.StableCursorPosition{X: len([]rune(text)), Y: p.baseY + int64(len(p.lines)-1)}
}

func (p *RemotePane) evictIfNeededLocked() {
	if p.scrollbackBytes <= remoteScrollbackCeiling {
		return
	}
	freed := 0
	needed := remoteScrollbackCeiling - remoteScrollbackFloor
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

func (p *RemotePane) GetCursorPosition() pane.StableCursorPosition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

func (p *RemotePane) GetCurrentSeqno() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seqno
}

func (p *RemotePane) GetChangedSince(start, end int64, seqno uint64) *pane.RangeSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	rs := &pane.RangeSet{}
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

func (p *RemotePane) GetLines(start, end int64) (int64, []pane.Line) {
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
	out := make([]pane.Line, to-from)
	copy(out, p.lines[from:to])
	return start, out
}

func (p *RemotePane) GetLogicalLines(start, end int64) []pane.Line {
	const maxLogicalLen = 1024
	_, rows := p.GetLines(start, end)
	var out []pane.Line
	var cur pane.Line
	building := false
	flush := func() {
		if building {
			out = append(out, cur)
			building = false
		}
	}
	for _, r := range rows {
		if !building {
			cur = pane.Line{Text: r.Text, Seqno: r.Seqno}
			building = true
		} else if len(cur.Text)+len(r.Text) > maxLogicalLen {
			flush()
			cur = pane.Line{Text: r.Text, Seqno: r.Seqno}
			building = true
		} else {
			cur.Text += r.Text
			if r.Seqno > cur.Seqno {
				cur.Seqno = r.Seqno
			}
		}
		if !r.Dirty {
			flush()
		}
	}
	flush()
	return out
}

func (p *RemotePane) GetDimensions() pane.TerminalSize {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dims
}

func (p *RemotePane) GetTitle() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

func (p *RemotePane) SendPaste(text string) error {
	return p.writeFrame("input", inputWire{Data: base64.StdEncoding.EncodeToString([]byte(text))})
}

func (p *RemotePane) Resize(size pane.TerminalSize) error {
	p.mu.Lock()
	p.dims = size
	p.mu.Unlock()
	return p.writeFrame("resize", resizeWire{Rows: size.Rows, Cols: size.Cols, PixelWidth: size.PixelWidth, PixelHeight: size.PixelHeight})
}

func (p *RemotePane) KeyDown(ev pane.KeyEvent) error {
	return p.writeFrame("input", inputWire{Data: base64.StdEncoding.EncodeToString([]byte(ev.Key))})
}

func (p *RemotePane) KeyUp(ev pane.KeyEvent) error { return nil }

func (p *RemotePane) MouseEvent(ev pane.MouseEvent) error { return nil }

func (p *RemotePane) writeFrame(typ string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeFrame(context.Background(), p.conn, frame{Type: typ, Data: data})
}

func (p *RemotePane) IsDead() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dead
}

// Kill closes the pane's connection; the peer observes the close and
// reaps its own side.
func (p *RemotePane) Kill() {
	p.mu.Lock()
	already := p.killed
	p.killed = true
	p.mu.Unlock()
	if already {
		return
	}
	p.conn.CloseNow()
}

func (p *RemotePane) Palette() pane.Palette { return pane.DefaultPalette() }

func (p *RemotePane) EraseScrollback(mode pane.EraseMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = nil
	p.scrollbackBytes = 0
	p.seqno++
	if mode == pane.EraseScrollbackAndViewport {
		p.cursor = pane.StableCursorPosition{}
	}
}

func (p *RemotePane) FocusChanged(focused bool) {}

func (p *RemotePane) HasUnseenOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unseenOutput
}

func (p *RemotePane) ClearUnseenOutput() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unseenOutput = false
}

func (p *RemotePane) CanCloseWithoutPrompting(reason string) bool { return p.IsDead() }

func (p *RemotePane) Search(pattern pane.SearchPattern, startY, endY int64, limit int) []pane.SearchResult {
	return nil
}

func (p *RemotePane) IsMouseGrabbed() bool { return false }

func (p *RemotePane) IsAltScreenActive() bool { return false }

// GetCurrentWorkingDir always returns "": this process has no /proc
// visibility into a peer's process tree, and the wire protocol carries no
// working directory.
func (p *RemotePane) GetCurrentWorkingDir(policy pane.CachePolicy) string { return "" }

func (p *RemotePane) GetForegroundProcessName(policy pane.CachePolicy) string { return "" }

func (p *RemotePane) TTYName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title
}

func (p *RemotePane) ExitBehaviorString() string { return "" }

var _ pane.Pane = (*RemotePane)(nil)
