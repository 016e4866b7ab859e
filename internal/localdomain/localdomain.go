// Package localdomain implements domain.Domain for PTY children spawned
// on the local machine: always attached, spawnable, never detachable.
package localdomain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/loppo-llc/termmux/internal/config"
	"github.com/loppo-llc/termmux/internal/domain"
	"github.com/loppo-llc/termmux/internal/id"
	"github.com/loppo-llc/termmux/internal/muxerr"
	"github.com/loppo-llc/termmux/internal/pane"
	"github.com/loppo-llc/termmux/internal/ptyio"
	"github.com/loppo-llc/termmux/internal/tab"
)

// Hooks lets the owning Mux observe pane/tab lifecycle without LocalDomain
// importing the mux package: plain callback fields instead of a direct
// dependency on the caller.
type Hooks struct {
	RemovePane func(paneID id.PaneId)
	PaneOutput func(paneID id.PaneId)
	PaneExit   func(p *pane.LocalPane)
}

// Domain is the LocalDomain implementation.
type Domain struct {
	id      id.DomainId
	name    string
	cfg     *config.Config
	logger  *slog.Logger
	pty     ptyio.Provider
	paneIDs *id.PaneAllocator
	tabIDs  *id.TabAllocator
	hooks   Hooks
}

// New constructs a LocalDomain. paneIDs/tabIDs are shared allocators owned
// by the Mux so ids stay globally unique across domains.
func New(domainID id.DomainId, name string, cfg *config.Config, logger *slog.Logger, provider ptyio.Provider, paneIDs *id.PaneAllocator, tabIDs *id.TabAllocator, hooks Hooks) *Domain {
	if provider == nil {
		provider = ptyio.Default
	}
	return &Domain{id: domainID, name: name, cfg: cfg, logger: logger, pty: provider, paneIDs: paneIDs, tabIDs: tabIDs, hooks: hooks}
}

var _ domain.Domain = (*Domain)(nil)

func (d *Domain) DomainID() id.DomainId { return d.id }
func (d *Domain) Name() string          { return d.name }
func (d *Domain) IsAttached() bool      { return true }
func (d *Domain) IsDetachable() bool    { return false }

// buildCommand resolves argv, cwd, and env for a new child, verifying
// cwd is readable (warning and dropping it rather than failing).
func (d *Domain) buildCommand(argv []string, cwd string, paneID id.PaneId) (resolvedArgv []string, resolvedCwd string, env []string) {
	resolvedArgv = argv
	if len(resolvedArgv) == 0 {
		if len(d.cfg.DomainSpawn.DefaultProg) > 0 {
			resolvedArgv = d.cfg.DomainSpawn.DefaultProg
		} else if shell := os.Getenv("SHELL"); shell != "" {
			resolvedArgv = []string{shell}
		} else {
			resolvedArgv = []string{"/bin/sh"}
		}
	}

	resolvedCwd = cwd
	if resolvedCwd == "" {
		resolvedCwd = d.cfg.DomainSpawn.DefaultCwd
	}
	if resolvedCwd == "" {
		if home, err := os.UserHomeDir(); err == nil {
			resolvedCwd = home
		}
	}
	if resolvedCwd != "" {
		if fi, err := os.Stat(resolvedCwd); err != nil || !fi.IsDir() {
			d.logger.Warn("cwd unreadable, dropping", "cwd", resolvedCwd, "pane_id", uint64(paneID))
			resolvedCwd = ""
		}
	}

	env = append(os.Environ(),
		"TERM=xterm-256color",
		"WEZTERM_PANE="+strconv.FormatUint(uint64(paneID), 10),
	)
	return resolvedArgv, resolvedCwd, env
}

// Spawn builds and starts a new PTY child, wrapping it in a fresh tab.
func (d *Domain) Spawn(ctx context.Context, req domain.SpawnRequest) (*tab.Tab, error) {
	paneID := d.paneIDs.Alloc()
	argv, cwd, env := d.buildCommand(req.Argv, req.Cwd, paneID)

	p, err := d.pty.Spawn(ptyio.SpawnRequest{
		Path: argv[0],
		Argv: argv,
		Env:  env,
		Dir:  cwd,
		Size: ptyio.Winsize{Rows: uint16(req.Size.Rows), Cols: uint16(req.Size.Cols), PixelWidth: uint16(req.Size.PixelWidth), PixelHeight: uint16(req.Size.PixelHeight)},
	})
	if err != nil {
		return nil, &muxerr.SpawnFailed{Cause: err}
	}

	lp := pane.NewLocal(p, pane.LocalSpawnConfig{
		PaneID:             paneID,
		DomainID:           d.id,
		CommandDescription: argv[0],
		Size:               req.Size,
		Config:             d.cfg,
		Logger:             d.logger,
		OnOutput:           d.hooks.PaneOutput,
		OnExit:             d.hooks.PaneExit,
	})

	tabID := d.tabIDs.Alloc()
	t := tab.New(tabID, req.Size, lp, &d.cfg.Tab)
	return t, nil
}

// SplitPane handles the local-spawn source case; the MovePane source
// case is orchestrated one level up by the Mux, since it requires
// reaching into another tab the domain has no visibility into.
func (d *Domain) SplitPane(ctx context.Context, req domain.SplitRequest) (pane.Pane, error) {
	if req.Source.IsMovePane {
		return nil, fmt.Errorf("localdomain: move-pane split must be resolved by the caller")
	}
	paneID := d.paneIDs.Alloc()
	argv, cwd, env := d.buildCommand(nil, "", paneID)

	p, err := d.pty.Spawn(ptyio.SpawnRequest{
		Path: argv[0],
		Argv: argv,
		Env:  env,
		Dir:  cwd,
	})
	if err != nil {
		return nil, &muxerr.SpawnFailed{Cause: err}
	}

	lp := pane.NewLocal(p, pane.LocalSpawnConfig{
		PaneID:             paneID,
		DomainID:           d.id,
		CommandDescription: argv[0],
		Config:             d.cfg,
		Logger:             d.logger,
		OnOutput:           d.hooks.PaneOutput,
		OnExit:             d.hooks.PaneExit,
	})
	return lp, nil
}

// Detach is always an error: LocalDomain is not detachable.
func (d *Domain) Detach(ctx context.Context) error {
	return &muxerr.CannotAttach{DomainID: uint64(d.id), Cause: fmt.Errorf("local domains are not detachable")}
}

// MovePaneToNewTab always defers to the caller: LocalDomain has nothing
// domain-specific to intercept.
func (d *Domain) MovePaneToNewTab(ctx context.Context, paneID id.PaneId, windowID *id.WindowId, workspace string) (*tab.Tab, error) {
	return nil, nil
}
