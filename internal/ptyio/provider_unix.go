//go:build !windows

package ptyio

import (
	"os"
	"os/exec"

	"github.com/creack/pty/v2"
)

// unixProvider spawns children via creack/pty/v2's pty.Start /
// pty.StartWithSize.
type unixProvider struct{}

// Default is the platform-selected PTY provider.
var Default Provider = unixProvider{}

func (unixProvider) Spawn(req SpawnRequest) (PTY, error) {
	cmd := buildCmd(req)
	ws := &pty.Winsize{
		Rows: req.Size.Rows,
		Cols: req.Size.Cols,
		X:    req.Size.PixelWidth,
		Y:    req.Size.PixelHeight,
	}
	f, err := pty.StartWithSize(cmd, ws)
	if err != nil {
		return nil, err
	}
	return &unixPTY{f: f, cmd: cmd}, nil
}

type unixPTY struct {
	f   *os.File
	cmd *exec.Cmd
}

func (p *unixPTY) Read(b []byte) (int, error)  { return p.f.Read(b) }
func (p *unixPTY) Write(b []byte) (int, error) { return p.f.Write(b) }
func (p *unixPTY) Close() error                { return p.f.Close() }
func (p *unixPTY) Pid() int {
	if p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

func (p *unixPTY) Resize(w Winsize) error {
	return pty.Setsize(p.f, &pty.Winsize{Rows: w.Rows, Cols: w.Cols, X: w.PixelWidth, Y: w.PixelHeight})
}

func (p *unixPTY) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
