//go:build windows

package ptyio

import (
	"context"
	"strings"

	"github.com/UserExistsError/conpty"
)

// windowsProvider spawns children via ConPTY, the cross-platform sibling of
// provider_unix.go's creack/pty/v2 backend — mirroring the os-specific PTY
// split in andyrewlee-amux's cmd/amux/main_windows.go.
type windowsProvider struct{}

// Default is the platform-selected PTY provider.
var Default Provider = windowsProvider{}

func (windowsProvider) Spawn(req SpawnRequest) (PTY, error) {
	cmdLine := req.Path
	if len(req.Argv) > 1 {
		cmdLine = strings.Join(req.Argv, " ")
	}
	opts := []conpty.ConPtyOption{
		conpty.ConPtyDimensions(int(req.Size.Cols), int(req.Size.Rows)),
	}
	if req.Dir != "" {
		opts = append(opts, conpty.ConPtyWorkDir(req.Dir))
	}
	if len(req.Env) > 0 {
		opts = append(opts, conpty.ConPtyEnv(req.Env))
	}
	cpty, err := conpty.Start(cmdLine, opts...)
	if err != nil {
		return nil, err
	}
	return &windowsPTY{c: cpty}, nil
}

type windowsPTY struct {
	c *conpty.ConPty
}

func (p *windowsPTY) Read(b []byte) (int, error)  { return p.c.Read(b) }
func (p *windowsPTY) Write(b []byte) (int, error) { return p.c.Write(b) }
func (p *windowsPTY) Close() error                { return p.c.Close() }
func (p *windowsPTY) Pid() int                     { return p.c.Pid() }

func (p *windowsPTY) Resize(w Winsize) error {
	return p.c.Resize(int(w.Cols), int(w.Rows))
}

func (p *windowsPTY) Wait() (int, error) {
	code, err := p.c.Wait(context.Background())
	return int(code), err
}
