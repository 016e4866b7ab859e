package remotedomain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"
	"tailscale.com/tsnet"

	"github.com/loppo-llc/termmux/internal/domain"
	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/muxerr"
	"github.com/loppo-llc/termmux/internal/pane"
	"github.com/loppo-llc/termmux/internal/tab"
)

// Domain is a domain.Domain backed by a peer termmux process, reached
// over a websocket connection: spawnable, detachable, and attached until
// Detach is called. A lost pane connection marks only that pane dead; it
// does not detach the domain.
type Domain struct {
	id       id.DomainId
	name     string
	peerAddr string // host:port of the peer's control endpoint
	ts       *tsnet.Server
	logger   *slog.Logger

	paneIDs *id.PaneAllocator
	tabIDs  *id.TabAllocator

	attached atomic.Bool
}

// New constructs a RemoteDomain that reaches peerAddr over a websocket
// connection. ts, when non-nil, joins the tailnet in client mode so
// peerAddr can name a tailnet DNS host; a nil ts dials peerAddr directly,
// which is how tests and non-tailnet peers use this type.
func New(domainID id.DomainId, name, peerAddr string, ts *tsnet.Server, logger *slog.Logger, paneIDs *id.PaneAllocator, tabIDs *id.TabAllocator) *Domain {
	d := &Domain{id: domainID, name: name, peerAddr: peerAddr, ts: ts, logger: logger, paneIDs: paneIDs, tabIDs: tabIDs}
	d.attached.Store(true)
	return d
}

var _ domain.Domain = (*Domain)(nil)

func (d *Domain) DomainID() id.DomainId { return d.id }
func (d *Domain) Name() string          { return d.name }
func (d *Domain) IsAttached() bool      { return d.attached.Load() }
func (d *Domain) IsDetachable() bool    { return true }

// httpClient routes the websocket dial through the tailnet when ts is
// set: the same tsnet.Server this process could alternatively use in
// server mode (ListenTLS), but here only ever as a client (Dial).
func (d *Domain) httpClient() *http.Client {
	if d.ts == nil {
		return http.DefaultClient
	}
	return &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return d.ts.Dial(ctx, network, addr)
		},
	}}
}

func (d *Domain) dial(ctx context.Context, path string) (*websocket.Conn, error) {
	url := fmt.Sprintf("ws://%s%s", d.peerAddr, path)
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPClient: d.httpClient()})
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("remotedomain: dial failed", "peer", d.peerAddr, "path", path, "err", err)
		}
		return nil, &muxerr.CannotAttach{DomainID: uint64(d.id), Cause: err}
	}
	return conn, nil
}

func writeFrame(ctx context.Context, conn *websocket.Conn, f frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// readFrame blocks for the next frame and unmarshals its Data into out,
// erroring if the frame's Type does not match wantType.
func readFrame(ctx context.Context, conn *websocket.Conn, wantType string, out any) error {
	_, b, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	var f frame
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if f.Type != wantType {
		return fmt.Errorf("remotedomain: expected %q frame, got %q", wantType, f.Type)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(f.Data, out)
}

// Spawn opens a control connection, asks the peer to spawn, then opens a
// second connection scoped to the resulting pane id for the I/O stream.
func (d *Domain) Spawn(ctx context.Context, req domain.SpawnRequest) (*tab.Tab, error) {
	if !d.IsAttached() {
		return nil, &muxerr.Detached{DomainID: uint64(d.id)}
	}

	control, err := d.dial(ctx, "/termmux/control")
	if err != nil {
		return nil, &muxerr.SpawnFailed{Cause: err}
	}
	defer control.CloseNow()

	payload, _ := json.Marshal(spawnRequestWire{
		Rows: req.Size.Rows, Cols: req.Size.Cols,
		PixelWidth: req.Size.PixelWidth, PixelHeight: req.Size.PixelHeight,
		Argv: req.Argv, Cwd: req.Cwd,
	})
	if err := writeFrame(ctx, control, frame{Type: "spawn", Data: payload}); err != nil {
		return nil, &muxerr.SpawnFailed{Cause: err}
	}
	var spawned spawnedWire
	if err := readFrame(ctx, control, "spawned", &spawned); err != nil {
		return nil, &muxerr.SpawnFailed{Cause: err}
	}

	localID := d.paneIDs.Alloc()
	p, err := d.attachPane(ctx, localID, id.PaneId(spawned.PaneID), req.Size, spawned.Title)
	if err != nil {
		return nil, &muxerr.SpawnFailed{Cause: err}
	}

	tabID := d.tabIDs.Alloc()
	t := tab.New(tabID, req.Size, p, nil)
	return t, nil
}

// SplitPane handles the local-spawn source case over the wire; MovePane
// splits are resolved by the Mux one level up, same as LocalDomain.
func (d *Domain) SplitPane(ctx context.Context, req domain.SplitRequest) (pane.Pane, error) {
	if !d.IsAttached() {
		return nil, &muxerr.Detached{DomainID: uint64(d.id)}
	}
	if req.Source.IsMovePane {
		return nil, fmt.Errorf("remotedomain: move-pane split must be resolved by the caller")
	}

	control, err := d.dial(ctx, "/termmux/control")
	if err != nil {
		return nil, err
	}
	defer control.CloseNow()

	payload, _ := json.Marshal(splitRequestWire{
		TabID: uint64(req.TabID), PaneIndex: req.PaneIndex, TopLevel: req.Geometry.TopLevel,
		Percent: req.Geometry.Size.Percent, Cells: req.Geometry.Size.Cells,
		Horizontal: req.Geometry.Direction == tab.Horizontal,
	})
	if err := writeFrame(ctx, control, frame{Type: "split", Data: payload}); err != nil {
		return nil, err
	}
	var spawned spawnedWire
	if err := readFrame(ctx, control, "spawned", &spawned); err != nil {
		return nil, err
	}
	localID := d.paneIDs.Alloc()
	return d.attachPane(ctx, localID, id.PaneId(spawned.PaneID), pane.TerminalSize{}, spawned.Title)
}

// Detach marks the domain detached; panes already attached keep running
// until their individual websocket connections close on their own.
func (d *Domain) Detach(ctx context.Context) error {
	d.attached.Store(false)
	return nil
}

// MovePaneToNewTab always defers to the caller: moving a remote pane into
// a new tab is a purely local (Mux-side) tree operation.
func (d *Domain) MovePaneToNewTab(ctx context.Context, paneID id.PaneId, windowID *id.WindowId, workspace string) (*tab.Tab, error) {
	return nil, nil
}
