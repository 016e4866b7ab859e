package remotedomain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/loppo-llc/termmux/internal/domain"
	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/pane"
)

// fakePeer is a minimal in-process stand-in for a peer termmux's control
// and pane endpoints, enough to exercise RemoteDomain's wire protocol.
func newFakePeer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/termmux/control", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()
		_, b, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var f frame
		_ = json.Unmarshal(b, &f)
		reply, _ := json.Marshal(spawnedWire{PaneID: 42, TabID: 7, Title: "bash"})
		_ = writeFrame(ctx, conn, frame{Type: "spawned", Data: reply})
	})
	mux.HandleFunc("/termmux/pane", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()

		out, _ := json.Marshal(outputWire{Data: base64.StdEncoding.EncodeToString([]byte("hello\n"))})
		_ = writeFrame(ctx, conn, frame{Type: "output", Data: out})

		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	})
	return httptest.NewServer(mux)
}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSpawnAttachesRemotePane(t *testing.T) {
	srv := newFakePeer(t)
	defer srv.Close()
	peerAddr := strings.TrimPrefix(srv.URL, "http://")

	var paneIDs id.PaneAllocator
	var tabIDs id.TabAllocator
	d := New(0, "peer", peerAddr, nil, testLogger(), &paneIDs, &tabIDs)

	if !d.IsAttached() || !d.IsDetachable() {
		t.Fatalf("expected a freshly constructed RemoteDomain to be attached and detachable")
	}

	tb, err := d.Spawn(context.Background(), domain.SpawnRequest{Size: pane.TerminalSize{Rows: 24, Cols: 80}})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	p := tb.GetActivePane()
	if p.GetTitle() != "bash" {
		t.Fatalf("title = %q, want bash", p.GetTitle())
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, lines := p.GetLines(0, 10); len(lines) > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	_, lines := p.GetLines(0, 10)
	if len(lines) == 0 || lines[0].Text != "hello" {
		t.Fatalf("lines = %+v, want one line \"hello\"", lines)
	}

	p.Kill()
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.IsDead() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("pane never reported dead after Kill")
}

func TestDetachClearsAttached(t *testing.T) {
	var paneIDs id.PaneAllocator
	var tabIDs id.TabAllocator
	d := New(0, "peer", "127.0.0.1:0", nil, testLogger(), &paneIDs, &tabIDs)

	if err := d.Detach(context.Background()); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if d.IsAttached() {
		t.Fatalf("expected IsAttached() == false after Detach")
	}

	if _, err := d.Spawn(context.Background(), domain.SpawnRequest{}); err == nil {
		t.Fatalf("expected Spawn on a detached domain to fail")
	}
}
