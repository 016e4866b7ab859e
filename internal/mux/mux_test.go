package mux

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/loppo-llc/termmux/internal/config"
	"github.com/loppo-llc/termmux/internal/localdomain"
	"github.com/loppo-llc/termmux/internal/pane"
	"github.com/loppo-llc/termmux/internal/ptyio"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// fakePTY is an in-memory ptyio.PTY: it never produces output and exits
// immediately when Kill-equivalent Close is called.
type fakePTY struct {
	mu     sync.Mutex
	closed bool
	waitCh chan int
}

func newFakePTY() *fakePTY { return &fakePTY{waitCh: make(chan int, 1)} }

func (f *fakePTY) Read(p []byte) (int, error) {
	code := <-f.waitCh
	f.waitCh <- code
	return 0, io.EOF
}
func (f *fakePTY) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakePTY) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.waitCh <- 0
	}
	return nil
}
func (f *fakePTY) Resize(w ptyio.Winsize) error { return nil }
func (f *fakePTY) Pid() int                     { return 1 }
func (f *fakePTY) Wait() (int, error) {
	code := <-f.waitCh
	f.waitCh <- code
	return code, nil
}

type fakeProvider struct{ last *fakePTY }

func (p *fakeProvider) Spawn(req ptyio.SpawnRequest) (ptyio.PTY, error) {
	p.last = newFakePTY()
	return p.last, nil
}

func newTestMux(t *testing.T) (*Mux, *localdomain.Domain, *fakeProvider) {
	t.Helper()
	m := New(testLogger(), config.Default())
	prov := &fakeProvider{}
	d := localdomain.New(m.DomainIDAllocator().Alloc(), "default", config.Default(), testLogger(), prov,
		m.PaneIDAllocator(), m.TabIDAllocator(), localdomain.Hooks{})
	m.AddDomain(d)
	return m, d, prov
}

// Activity count goes up on every NewActivity and down on every Dispose.
func TestActivityCount(t *testing.T) {
	m := New(testLogger(), config.Default())
	a1 := m.NewActivity()
	if m.ActivityCount() != 1 {
		t.Fatalf("count = %d, want 1", m.ActivityCount())
	}
	a2 := m.NewActivity()
	if m.ActivityCount() != 2 {
		t.Fatalf("count = %d, want 2", m.ActivityCount())
	}
	a1.Dispose()
	if m.ActivityCount() != 1 {
		t.Fatalf("count = %d, want 1", m.ActivityCount())
	}
	a2.Dispose()
	if m.ActivityCount() != 0 {
		t.Fatalf("count = %d, want 0", m.ActivityCount())
	}
}

// Window creation via builder fires exactly one WindowCreated on Dispose.
func TestWindowCreationViaBuilder(t *testing.T) {
	m, _, _ := newTestMux(t)

	var got []Notification
	m.Subscribe(func(n Notification) bool {
		got = append(got, n)
		return true
	})

	builder := m.NewEmptyWindow("test-workspace")
	if builder.WindowID != 0 {
		t.Fatalf("WindowID = %d, want 0", builder.WindowID)
	}
	builder.Dispose()

	ids := m.IterWindowIDs()
	if len(ids) != 1 || ids[0] != 0 {
		t.Fatalf("IterWindowIDs = %v, want [0]", ids)
	}
	if len(got) != 1 || got[0].Kind != WindowCreated {
		t.Fatalf("notifications = %+v, want exactly one WindowCreated", got)
	}
}

// A subscriber returning false is unsubscribed after that call.
func TestSubscriberLifecycle(t *testing.T) {
	m := New(testLogger(), config.Default())
	calls := 0
	m.Subscribe(func(n Notification) bool {
		calls++
		return false
	})

	m.notify(Notification{Kind: Empty})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	m.notify(Notification{Kind: Empty})
	if calls != 1 {
		t.Fatalf("calls after second notify = %d, want still 1 (unsubscribed)", calls)
	}
	if len(m.bus.subs) != 0 {
		t.Fatalf("subscribers map not empty: %v", m.bus.subs)
	}
}

// A window whose only pane dies is pruned along with its tab.
func TestDeadWindowPrune(t *testing.T) {
	m, d, prov := newTestMux(t)

	var kinds []Kind
	m.Subscribe(func(n Notification) bool {
		kinds = append(kinds, n.Kind)
		return true
	})

	tb, windowID, err := m.SpawnTabOrWindow(context.Background(), SpawnTabOrWindowRequest{
		Domain: d, Size: pane.TerminalSize{Rows: 24, Cols: 80}, Workspace: DefaultWorkspace,
	})
	if err != nil {
		t.Fatalf("SpawnTabOrWindow: %v", err)
	}
	_ = tb

	if prov.last == nil {
		t.Fatalf("expected a PTY to have been spawned")
	}
	prov.last.Close() // simulate the child process exiting

	// Wait for the pane's background goroutines to observe the exit and
	// mark it dead; poll briefly since that happens off-thread.
	p := tb.GetActivePane()
	waitUntilDead(t, p)

	m.PruneDeadWindows()

	if ids := m.IterWindowIDs(); len(ids) != 0 {
		t.Fatalf("IterWindowIDs after prune = %v, want []", ids)
	}
	if _, ok := m.GetWindow(windowID); ok {
		t.Fatalf("window %d still present after prune", windowID)
	}

	if len(kinds) < 3 {
		t.Fatalf("notification log too short: %v", kinds)
	}
	tail := kinds[len(kinds)-3:]
	want := []Kind{PaneRemoved, WindowRemoved, Empty}
	for i := range want {
		if tail[i] != want[i] {
			t.Fatalf("notification tail = %v, want %v", tail, want)
		}
	}
}

func waitUntilDead(t *testing.T, p pane.Pane) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.IsDead() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("pane never reported dead")
}
