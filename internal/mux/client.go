package mux

import (
	"sync"
	"time"

	"github.com/loppo-llc/termmux/internal/id"
)

// ClientInfo is the per-client state the Mux tracks.
type ClientInfo struct {
	ClientID        id.ClientId
	ConnectedAt     time.Time
	ActiveWorkspace string
	LastInput       time.Time
	FocusedPaneID   *id.PaneId
}

type clientRegistry struct {
	mu      sync.Mutex
	clients map[id.ClientId]*ClientInfo
	now     func() time.Time
}

func newClientRegistry(now func() time.Time) *clientRegistry {
	if now == nil {
		now = time.Now
	}
	return &clientRegistry{clients: make(map[id.ClientId]*ClientInfo), now: now}
}

func (r *clientRegistry) register(clientID id.ClientId) *ClientInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := &ClientInfo{ClientID: clientID, ConnectedAt: r.now(), ActiveWorkspace: DefaultWorkspace}
	r.clients[clientID] = info
	return info
}

func (r *clientRegistry) unregister(clientID id.ClientId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, clientID)
}

func (r *clientRegistry) get(clientID id.ClientId) (*ClientInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.clients[clientID]
	if !ok {
		return nil, false
	}
	cp := *info
	return &cp, true
}

func (r *clientRegistry) updateLastInput(clientID id.ClientId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.clients[clientID]; ok {
		info.LastInput = r.now()
	}
}

// updateFocusedPane records the new focused pane and reports the previous
// one, if any, so the caller can fire focus_changed on both.
func (r *clientRegistry) updateFocusedPane(clientID id.ClientId, paneID id.PaneId) (prior *id.PaneId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.clients[clientID]
	if !ok {
		return nil
	}
	prior = info.FocusedPaneID
	p := paneID
	info.FocusedPaneID = &p
	return prior
}

func (r *clientRegistry) setActiveWorkspace(clientID id.ClientId, workspace string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.clients[clientID]
	if !ok {
		return false
	}
	info.ActiveWorkspace = workspace
	return true
}

func (r *clientRegistry) iter() []ClientInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ClientInfo, 0, len(r.clients))
	for _, info := range r.clients {
		out = append(out, *info)
	}
	return out
}

// renameWorkspaceForAll updates every client whose active_workspace is old,
// returning the affected client ids.
func (r *clientRegistry) renameWorkspaceForAll(oldName, newName string) []id.ClientId {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected []id.ClientId
	for cid, info := range r.clients {
		if info.ActiveWorkspace == oldName {
			info.ActiveWorkspace = newName
			affected = append(affected, cid)
		}
	}
	return affected
}
