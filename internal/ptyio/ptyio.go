// Package ptyio is the PTY provider boundary the core spawns local panes
// through: a provider exposing spawn/on_data/on_exit/write/resize/kill/pid.
package ptyio

import (
	"io"
	"os/exec"
)

// Winsize is the terminal size passed to a spawned child, in cells.
type Winsize struct {
	Rows, Cols         uint16
	PixelWidth, PixelHeight uint16
}

// PTY is a running pseudo-terminal child process.
type PTY interface {
	io.ReadWriteCloser
	Resize(w Winsize) error
	Pid() int
	// Wait blocks until the child exits and returns its exit code (best
	// effort; -1 if it could not be determined, e.g. killed by signal).
	Wait() (exitCode int, err error)
}

// SpawnRequest describes a child process to start under a fresh PTY.
type SpawnRequest struct {
	Path string
	Argv []string
	Env  []string
	Dir  string
	Size Winsize
}

// Provider starts PTY-backed child processes. The default provider is
// platform-selected (provider_unix.go / provider_windows.go); tests may
// substitute a fake.
type Provider interface {
	Spawn(req SpawnRequest) (PTY, error)
}

// buildCmd builds the *exec.Cmd the Unix provider starts under a PTY.
// req.Argv is the full argument vector, program name included, the same
// way the Windows provider reads it.
func buildCmd(req SpawnRequest) *exec.Cmd {
	cmd := exec.Command(req.Path)
	if len(req.Argv) > 0 {
		cmd.Args = req.Argv
	}
	cmd.Dir = req.Dir
	cmd.Env = req.Env
	return cmd
}
