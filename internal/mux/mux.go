// Package mux implements the Mux coordinator: the owner of every
// Pane/Tab/Window/Domain, the client registry, the notification bus, and
// the spawn/removal/prune orchestration that ties them together. Go has
// no single-threaded event loop, so a single mutex plays the role a
// cooperative scheduler would: every state mutation happens while holding
// it, and the resulting notification is delivered after it is released,
// so a subscriber sees the new state and may call back into the Mux
// without deadlocking.
package mux

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/loppo-llc/termmux/internal/config"
	"github.com/loppo-llc/termmux/internal/domain"
	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/muxerr"
	"github.com/loppo-llc/termmux/internal/pane"
	"github.com/loppo-llc/termmux/internal/tab"
	"github.com/loppo-llc/termmux/internal/window"
)

// DefaultWorkspace is the workspace name used when none is specified.
const DefaultWorkspace = "default"

// Mux owns every Pane/Tab/Window/Domain and mediates all structural
// changes to them.
type Mux struct {
	mu sync.Mutex

	logger *slog.Logger
	cfg    *config.Config

	panes   map[id.PaneId]pane.Pane
	tabs    map[id.TabId]*tab.Tab
	windows map[id.WindowId]*window.Window

	domains     map[id.DomainId]domain.Domain
	domainNames map[string]id.DomainId
	defaultDomainID id.DomainId

	clients *clientRegistry
	bus     *notifyBus
	activity activityCounter

	identity *id.ClientId

	windowIDs   id.WindowAllocator
	tabIDs      id.TabAllocator
	paneIDs     id.PaneAllocator
	domainIDs   id.DomainAllocator
	numPanesByWorkspace map[string]int

	banner string
}

// New constructs an empty Mux.
func New(logger *slog.Logger, cfg *config.Config) *Mux {
	if cfg == nil {
		cfg = config.Default()
	}
	m := &Mux{
		logger:              logger,
		cfg:                  cfg,
		panes:                make(map[id.PaneId]pane.Pane),
		tabs:                 make(map[id.TabId]*tab.Tab),
		windows:              make(map[id.WindowId]*window.Window),
		domains:              make(map[id.DomainId]domain.Domain),
		domainNames:          make(map[string]id.DomainId),
		clients:              newClientRegistry(nil),
		bus:                  newNotifyBus(),
		numPanesByWorkspace:  make(map[string]int),
	}
	m.activity.onDrainedToZero = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.pruneDeadWindowsLocked()
	}
	return m
}

// NewActivity acquires a scoped Activity; pruneDeadWindows is a no-op
// while any Activity is outstanding.
func (m *Mux) NewActivity() *Activity { return m.activity.New() }

// PaneIDAllocator, TabIDAllocator and DomainIDAllocator expose the Mux's
// own id allocators so Domain implementations share one id space with the
// Mux instead of minting their own, disjoint counters.
func (m *Mux) PaneIDAllocator() *id.PaneAllocator     { return &m.paneIDs }
func (m *Mux) TabIDAllocator() *id.TabAllocator       { return &m.tabIDs }
func (m *Mux) DomainIDAllocator() *id.DomainAllocator { return &m.domainIDs }

// ActivityCount reports the current outstanding Activity count.
func (m *Mux) ActivityCount() int64 { return m.activity.Count() }

// Subscribe registers a notification callback.
func (m *Mux) Subscribe(cb Subscriber) id.SubId { return m.bus.Subscribe(cb) }

// Unsubscribe removes a previously registered callback.
func (m *Mux) Unsubscribe(subID id.SubId) { m.bus.Unsubscribe(subID) }

func (m *Mux) notify(n Notification) { m.bus.Notify(n) }

// AddDomain registers a Domain. The first domain added becomes the
// default domain.
func (m *Mux) AddDomain(d domain.Domain) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domains[d.DomainID()] = d
	m.domainNames[d.Name()] = d.DomainID()
	if len(m.domains) == 1 {
		m.defaultDomainID = d.DomainID()
	}
}

func (m *Mux) DefaultDomain() (domain.Domain, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.domains[m.defaultDomainID]
	return d, ok
}

func (m *Mux) DomainByName(name string) (domain.Domain, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	domainID, ok := m.domainNames[name]
	if !ok {
		return nil, false
	}
	d, ok := m.domains[domainID]
	return d, ok
}

// AddPane registers a pane directly (used when a Domain constructs a Pane
// outside of Spawn, e.g. a split). Emits PaneAdded.
func (m *Mux) AddPane(p pane.Pane, workspace string) {
	m.mu.Lock()
	m.panes[p.PaneID()] = p
	m.numPanesByWorkspace[workspace]++
	m.mu.Unlock()
	m.notify(Notification{Kind: PaneAdded, PaneID: p.PaneID()})
}

// NotifyPaneOutput emits PaneOutput{pane_id}, the hook a Domain's pane
// implementation calls on every PTY/wire data event.
func (m *Mux) NotifyPaneOutput(paneID id.PaneId) {
	m.notify(Notification{Kind: PaneOutput, PaneID: paneID})
}

// AddTabNoPanes registers a tab whose panes are assumed already
// registered.
func (m *Mux) AddTabNoPanes(t *tab.Tab) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[t.ID()] = t
}

// AddTabAndActivePane registers a tab and its currently-active pane.
func (m *Mux) AddTabAndActivePane(t *tab.Tab, workspace string) {
	m.mu.Lock()
	m.tabs[t.ID()] = t
	if p := t.GetActivePane(); p != nil {
		m.panes[p.PaneID()] = p
		m.numPanesByWorkspace[workspace]++
	}
	m.mu.Unlock()
	if p := t.GetActivePane(); p != nil {
		m.notify(Notification{Kind: PaneAdded, PaneID: p.PaneID()})
	}
}

// GetPane, GetTab, GetWindow are the read-only registry lookups.
func (m *Mux) GetPane(paneID id.PaneId) (pane.Pane, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.panes[paneID]
	return p, ok
}

func (m *Mux) GetTab(tabID id.TabId) (*tab.Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tabs[tabID]
	return t, ok
}

func (m *Mux) GetWindow(windowID id.WindowId) (*window.Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[windowID]
	return w, ok
}

func (m *Mux) IterPaneIDs() []id.PaneId {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]id.PaneId, 0, len(m.panes))
	for pid := range m.panes {
		out = append(out, pid)
	}
	return out
}

func (m *Mux) IterTabIDs() []id.TabId {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]id.TabId, 0, len(m.tabs))
	for tid := range m.tabs {
		out = append(out, tid)
	}
	return out
}

func (m *Mux) IterWindowIDs() []id.WindowId {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]id.WindowId, 0, len(m.windows))
	for wid := range m.windows {
		out = append(out, wid)
	}
	return out
}

func (m *Mux) IterClients() []ClientInfo { return m.clients.iter() }

func (m *Mux) IterWorkspaces() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	for _, w := range m.windows {
		seen[w.Workspace()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for ws := range seen {
		out = append(out, ws)
	}
	return out
}

// RegisterClient adds clientID to the registry and returns its new
// ClientInfo.
func (m *Mux) RegisterClient(clientID id.ClientId) *ClientInfo {
	return m.clients.register(clientID)
}

func (m *Mux) UnregisterClient(clientID id.ClientId) { m.clients.unregister(clientID) }
func (m *Mux) UpdateLastInput(clientID id.ClientId)  { m.clients.updateLastInput(clientID) }

// UpdateFocusedPane fires focus_changed(false) on the prior pane and
// focus_changed(true) on the new one; missing panes are ignored silently.
func (m *Mux) UpdateFocusedPane(clientID id.ClientId, paneID id.PaneId) {
	prior := m.clients.updateFocusedPane(clientID, paneID)
	if prior != nil {
		if p, ok := m.GetPane(*prior); ok {
			p.FocusChanged(false)
		}
	}
	if p, ok := m.GetPane(paneID); ok {
		p.FocusChanged(true)
	}
	m.notify(Notification{Kind: PaneFocused, PaneID: paneID})
}

// SetActiveWorkspaceForClient routes set_active_workspace through a given
// client and emits ActiveWorkspaceChanged.
func (m *Mux) SetActiveWorkspaceForClient(clientID id.ClientId, workspace string) {
	if m.clients.setActiveWorkspace(clientID, workspace) {
		m.notify(Notification{Kind: ActiveWorkspaceChanged, ClientID: clientID})
	}
}

// WithIdentity replaces the current identity and returns a release func
// that restores the previous value.
func (m *Mux) WithIdentity(clientID id.ClientId) (release func()) {
	m.mu.Lock()
	prev := m.identity
	cp := clientID
	m.identity = &cp
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.identity = prev
		m.mu.Unlock()
	}
}

// ActiveWorkspace returns the current identity's active workspace, or
// DefaultWorkspace if there is none or it has no registered client.
func (m *Mux) ActiveWorkspace() string {
	m.mu.Lock()
	identity := m.identity
	m.mu.Unlock()
	if identity == nil {
		return DefaultWorkspace
	}
	info, ok := m.clients.get(*identity)
	if !ok || info.ActiveWorkspace == "" {
		return DefaultWorkspace
	}
	return info.ActiveWorkspace
}

// SetActiveWorkspace routes through the current identity, if any.
func (m *Mux) SetActiveWorkspace(workspace string) {
	m.mu.Lock()
	identity := m.identity
	m.mu.Unlock()
	if identity == nil {
		return
	}
	m.SetActiveWorkspaceForClient(*identity, workspace)
}

// RecordInputForCurrentIdentity updates last_input for the active
// identity, if any.
func (m *Mux) RecordInputForCurrentIdentity() {
	m.mu.Lock()
	identity := m.identity
	m.mu.Unlock()
	if identity != nil {
		m.clients.updateLastInput(*identity)
	}
}

// RemovePane kills the pane, emits PaneRemoved, then prunes.
func (m *Mux) RemovePane(paneID id.PaneId) {
	m.mu.Lock()
	p, ok := m.panes[paneID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.panes, paneID)
	m.mu.Unlock()

	p.Kill()
	m.notify(Notification{Kind: PaneRemoved, PaneID: paneID})
	m.PruneDeadWindows()
}

// RemoveTab detaches the tab from its window, removes every pane it
// contains (emitting PaneRemoved for each), then prunes.
func (m *Mux) RemoveTab(tabID id.TabId) {
	m.mu.Lock()
	t, ok := m.tabs[tabID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.tabs, tabID)
	for _, w := range m.windows {
		w.RemoveByID(tabID)
	}
	m.mu.Unlock()

	for _, p := range t.IterPanes() {
		if p.Pane == nil {
			continue
		}
		paneID := p.Pane.PaneID()
		m.mu.Lock()
		delete(m.panes, paneID)
		m.mu.Unlock()
		p.Pane.Kill()
		m.notify(Notification{Kind: PaneRemoved, PaneID: paneID})
	}
	m.PruneDeadWindows()
}

// KillWindow iterates a window's tabs and removes them, emits
// WindowRemoved, then prunes.
func (m *Mux) KillWindow(windowID id.WindowId) {
	m.mu.Lock()
	w, ok := m.windows[windowID]
	if !ok {
		m.mu.Unlock()
		return
	}
	tabIDs := w.TabIds()
	delete(m.windows, windowID)
	m.mu.Unlock()

	for _, tabID := range tabIDs {
		m.RemoveTab(tabID)
	}
	m.notify(Notification{Kind: WindowRemoved, WindowID: windowID})
	m.PruneDeadWindows()
}

// PruneDeadWindows is a no-op while any Activity is outstanding;
// otherwise it prunes dead tabs from every window, removes tabs and
// windows left empty, and emits Empty if the Mux ends up with zero
// panes.
func (m *Mux) PruneDeadWindows() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneDeadWindowsLocked()
}

func (m *Mux) pruneDeadWindowsLocked() {
	if m.activity.Count() > 0 {
		return
	}

	live := make(map[id.TabId]struct{}, len(m.tabs))
	for tabID := range m.tabs {
		live[tabID] = struct{}{}
	}

	seenPanes := make(map[id.PaneId]struct{})
	var removedPaneIDs []id.PaneId
	addPane := func(paneID id.PaneId) {
		if _, ok := seenPanes[paneID]; ok {
			return
		}
		seenPanes[paneID] = struct{}{}
		removedPaneIDs = append(removedPaneIDs, paneID)
	}

	var emptyWindows []id.WindowId
	for windowID, w := range m.windows {
		removedTabs, deadPaneIDs := w.PruneDeadTabs(live)
		for _, paneID := range deadPaneIDs {
			addPane(paneID)
		}
		for _, tabID := range removedTabs {
			if t, ok := m.tabs[tabID]; ok {
				for _, pp := range t.IterPanes() {
					if pp.Pane != nil {
						addPane(pp.Pane.PaneID())
					}
				}
				delete(m.tabs, tabID)
			}
		}
		if w.IsEmpty() {
			emptyWindows = append(emptyWindows, windowID)
		}
	}
	for _, paneID := range removedPaneIDs {
		delete(m.panes, paneID)
	}
	for _, windowID := range emptyWindows {
		delete(m.windows, windowID)
	}

	if len(removedPaneIDs) > 0 || len(emptyWindows) > 0 {
		m.mu.Unlock()
		for _, paneID := range removedPaneIDs {
			m.notify(Notification{Kind: PaneRemoved, PaneID: paneID})
		}
		for _, windowID := range emptyWindows {
			m.notify(Notification{Kind: WindowRemoved, WindowID: windowID})
		}
		m.mu.Lock()
	}

	if len(m.panes) == 0 {
		m.mu.Unlock()
		m.notify(Notification{Kind: Empty})
		m.mu.Lock()
	}
}

// Resolved locates a pane: which domain owns it and, if it still sits
// inside a tab and window, which ones.
type Resolved struct {
	DomainID id.DomainId
	WindowID id.WindowId
	TabID    id.TabId
}

func (m *Mux) ResolvePaneId(paneID id.PaneId) (*Resolved, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.panes[paneID]
	if !ok {
		return nil, &muxerr.NotFound{Kind: "pane", ID: fmt.Sprint(uint64(paneID))}
	}
	for tabID, t := range m.tabs {
		for _, pp := range t.IterPanes() {
			if pp.Pane != nil && pp.Pane.PaneID() == paneID {
				for windowID, w := range m.windows {
					for _, wid := range w.TabIds() {
						if wid == tabID {
							return &Resolved{DomainID: p.DomainID(), WindowID: windowID, TabID: tabID}, nil
						}
					}
				}
				return &Resolved{DomainID: p.DomainID(), TabID: tabID}, nil
			}
		}
	}
	return nil, &muxerr.NotFound{Kind: "pane", ID: fmt.Sprint(uint64(paneID))}
}

// NewEmptyWindow returns a WindowBuilder that holds a live Activity. The
// caller must call Notify or Dispose.
func (m *Mux) NewEmptyWindow(workspace string) *WindowBuilder {
	if workspace == "" {
		workspace = DefaultWorkspace
	}
	m.mu.Lock()
	windowID := m.windowIDs.Alloc()
	w := window.New(windowID, workspace, &m.cfg.Window)
	m.windows[windowID] = w
	m.mu.Unlock()

	return &WindowBuilder{
		mux:      m,
		WindowID: windowID,
		window:   w,
		activity: m.activity.New(),
	}
}

// WindowBuilder is the scoped handle new_empty_window returns: it holds
// the window's Activity until Notify/Dispose releases it, emitting
// WindowCreated exactly once.
type WindowBuilder struct {
	mux      *Mux
	WindowID id.WindowId
	window   *window.Window
	activity *Activity
	notified bool
}

func (b *WindowBuilder) Window() *window.Window { return b.window }

// Notify emits WindowCreated and releases the held Activity. Safe to call
// at most meaningfully once; later calls are no-ops.
func (b *WindowBuilder) Notify() {
	if b.notified {
		return
	}
	b.notified = true
	b.mux.notify(Notification{Kind: WindowCreated, WindowID: b.WindowID})
	b.activity.Dispose()
}

// Dispose is an alias for Notify: WindowBuilder fires WindowCreated on
// release regardless of which name the caller used.
func (b *WindowBuilder) Dispose() { b.Notify() }

// SpawnTabOrWindow spawns a new tab into an existing window, or a fresh
// window if none was given, registering the resulting tab and pane with
// the Mux.
func (m *Mux) SpawnTabOrWindow(ctx context.Context, req SpawnTabOrWindowRequest) (*tab.Tab, id.WindowId, error) {
	var windowID id.WindowId
	var builder *WindowBuilder
	size := req.Size

	if req.WindowID != nil {
		windowID = *req.WindowID
		w, ok := m.GetWindow(windowID)
		if !ok {
			return nil, 0, &muxerr.NotFound{Kind: "window", ID: fmt.Sprint(uint64(windowID))}
		}
		if active := w.ActiveTab(); active != nil {
			size = active.Size()
		}
	} else {
		builder = m.NewEmptyWindow(req.Workspace)
		windowID = builder.WindowID
	}

	d := req.Domain
	if !d.IsAttached() && d.IsDetachable() {
		return nil, 0, &muxerr.Detached{DomainID: uint64(d.DomainID())}
	}

	cwd := req.CommandDir
	if cwd == "" && req.CurrentPaneID != nil {
		if p, ok := m.GetPane(*req.CurrentPaneID); ok && p.DomainID() == d.DomainID() {
			cwd = p.GetCurrentWorkingDir(pane.AllowStale)
		}
	}

	t, err := d.Spawn(ctx, domain.SpawnRequest{Size: size, Argv: req.Command, Cwd: cwd, WindowID: windowID})
	if err != nil {
		if builder != nil {
			builder.Dispose()
		}
		return nil, 0, err
	}

	m.AddTabAndActivePane(t, req.Workspace)
	w, _ := m.GetWindow(windowID)
	if err := w.Push(t); err != nil {
		return nil, 0, err
	}
	if err := w.SaveAndThenSetActive(w.Len() - 1); err != nil {
		return nil, 0, err
	}
	m.notify(Notification{Kind: TabAddedToWindow, TabID: t.ID(), WindowID: windowID})

	if builder != nil {
		builder.Dispose()
	}
	return t, windowID, nil
}

// SpawnTabOrWindowRequest carries spawn_tab_or_window's parameters.
type SpawnTabOrWindowRequest struct {
	WindowID      *id.WindowId
	Domain        domain.Domain
	Command       []string
	CommandDir    string
	Size          pane.TerminalSize
	CurrentPaneID *id.PaneId
	Workspace     string
}

// SplitPane asks the owning domain to produce the new pane, grafts it
// into the tab's layout tree, then registers it with the Mux exactly
// once.
func (m *Mux) SplitPane(ctx context.Context, d domain.Domain, tabID id.TabId, paneIndex int, req tab.SplitRequest, workspace string) (pane.Pane, error) {
	t, ok := m.GetTab(tabID)
	if !ok {
		return nil, &muxerr.NotFound{Kind: "tab", ID: fmt.Sprint(uint64(tabID))}
	}

	p, err := d.SplitPane(ctx, domain.SplitRequest{TabID: tabID, PaneIndex: paneIndex, Source: domain.SplitSource{Spawn: true}, Geometry: req})
	if err != nil {
		return nil, err
	}
	if err := t.Split(paneIndex, req, p); err != nil {
		return nil, err
	}
	m.AddPane(p, workspace)
	m.notify(Notification{Kind: TabResized, TabID: tabID})
	return p, nil
}

// MovePaneToNewTab detaches a pane from its current tab and places it
// alone in a new tab, in an existing or freshly created window.
func (m *Mux) MovePaneToNewTab(ctx context.Context, paneID id.PaneId, windowID *id.WindowId, workspace string) (*tab.Tab, error) {
	resolved, err := m.ResolvePaneId(paneID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	d, ok := m.domains[resolved.DomainID]
	m.mu.Unlock()
	if !ok {
		return nil, &muxerr.NotFound{Kind: "domain", ID: fmt.Sprint(uint64(resolved.DomainID))}
	}
	if t, err := d.MovePaneToNewTab(ctx, paneID, windowID, workspace); err != nil || t != nil {
		return t, err
	}

	p, ok := m.GetPane(paneID)
	if !ok {
		return nil, &muxerr.NotFound{Kind: "pane", ID: fmt.Sprint(uint64(paneID))}
	}

	var targetWindowID id.WindowId
	var builder *WindowBuilder
	if windowID != nil {
		targetWindowID = *windowID
	} else {
		builder = m.NewEmptyWindow(workspace)
		targetWindowID = builder.WindowID
	}

	if srcTab, ok := m.GetTab(resolved.TabID); ok {
		for i, pp := range srcTab.IterPanes() {
			if pp.Pane != nil && pp.Pane.PaneID() == paneID {
				_ = srcTab.Unsplit(i)
				break
			}
		}
		if srcTab.IsDead() {
			m.RemoveTab(resolved.TabID)
		}
	}

	newTab := tab.New(m.nextTabID(), p.GetDimensions(), p, nil)
	m.AddTabNoPanes(newTab)
	w, _ := m.GetWindow(targetWindowID)
	if err := w.Push(newTab); err != nil {
		return nil, err
	}
	m.notify(Notification{Kind: TabAddedToWindow, TabID: newTab.ID(), WindowID: targetWindowID})
	if builder != nil {
		builder.Dispose()
	}
	return newTab, nil
}

func (m *Mux) nextTabID() id.TabId { return m.tabIDs.Alloc() }

// RenameWorkspace retags every window currently in oldName with newName.
func (m *Mux) RenameWorkspace(oldName, newName string) {
	m.mu.Lock()
	for _, w := range m.windows {
		if w.Workspace() == oldName {
			w.SetWorkspace(newName)
		}
	}
	m.mu.Unlock()

	affected := m.clients.renameWorkspaceForAll(oldName, newName)
	m.notify(Notification{Kind: WorkspaceRenamed, OldWorkspace: oldName, NewWorkspace: newName})
	for _, cid := range affected {
		m.notify(Notification{Kind: ActiveWorkspaceChanged, ClientID: cid})
	}
	m.recomputeNumPanesByWorkspace()
}

func (m *Mux) recomputeNumPanesByWorkspace() {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, w := range m.windows {
		n := 0
		for _, tid := range w.TabIds() {
			if t, ok := m.tabs[tid]; ok {
				n += t.PanesCount()
			}
		}
		counts[w.Workspace()] += n
	}
	m.numPanesByWorkspace = counts
}

func (m *Mux) NumPanesByWorkspace(workspace string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.numPanesByWorkspace[workspace]
}
