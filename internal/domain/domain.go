// Package domain defines the Domain contract: the pane/tab spawning
// boundary a Mux delegates to, along with the two axes that
// differentiate implementations — spawnable and detachable.
package domain

import (
	"context"

	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/pane"
	"github.com/loppo-llc/termmux/internal/tab"
)

// SplitSource names where a new pane for a split comes from.
type SplitSource struct {
	// Spawn requests a freshly spawned pane; MovePane reuses an existing
	// one. Exactly one of these is meaningful at a time.
	Spawn         bool
	MovePaneID    id.PaneId
	IsMovePane    bool
}

// SpawnRequest is everything LocalDomain.Spawn needs to build a command
// and PTY.
type SpawnRequest struct {
	Size      pane.TerminalSize
	Argv      []string
	Cwd       string
	WindowID  id.WindowId
}

// SplitRequest carries a tab/pane target plus the split geometry to apply.
type SplitRequest struct {
	TabID      id.TabId
	PaneIndex  int
	Source     SplitSource
	Geometry   tab.SplitRequest
}

// Domain is the pane/tab factory boundary a Mux delegates spawning and
// lifecycle detachment to. Implementations: LocalDomain (always attached,
// spawnable, not detachable) and RemoteDomain (spawnable, detachable).
type Domain interface {
	DomainID() id.DomainId
	Name() string

	IsAttached() bool
	IsDetachable() bool

	Spawn(ctx context.Context, req SpawnRequest) (*tab.Tab, error)
	SplitPane(ctx context.Context, req SplitRequest) (pane.Pane, error)

	// Detach releases this domain's panes; only meaningful when
	// IsDetachable is true. Non-detachable domains return an error.
	Detach(ctx context.Context) error

	// MovePaneToNewTab lets a domain intercept move_pane_to_new_tab; most
	// domains return (nil, nil) meaning "do it locally".
	MovePaneToNewTab(ctx context.Context, paneID id.PaneId, windowID *id.WindowId, workspace string) (*tab.Tab, error)
}
