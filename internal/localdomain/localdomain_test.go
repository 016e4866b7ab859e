package localdomain

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/loppo-llc/termmux/internal/config"
	"github.com/loppo-llc/termmux/internal/id"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildCommandFallsBackToConfiguredDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.DomainSpawn.DefaultProg = []string{"/bin/bash", "-l"}
	cfg.DomainSpawn.DefaultCwd = os.TempDir()

	d := New(id.DomainId(0), "local", cfg, testLogger(), nil, &id.PaneAllocator{}, &id.TabAllocator{}, Hooks{})

	argv, cwd, env := d.buildCommand(nil, "", id.PaneId(7))
	if len(argv) != 2 || argv[0] != "/bin/bash" {
		t.Fatalf("argv = %v, want configured default_prog", argv)
	}
	if cwd != os.TempDir() {
		t.Fatalf("cwd = %q, want %q", cwd, os.TempDir())
	}
	foundPane, foundTerm := false, false
	for _, e := range env {
		if e == "WEZTERM_PANE=7" {
			foundPane = true
		}
		if e == "TERM=xterm-256color" {
			foundTerm = true
		}
	}
	if !foundPane || !foundTerm {
		t.Fatalf("env missing expected entries: %v", env)
	}
}

func TestBuildCommandDropsUnreadableCwd(t *testing.T) {
	cfg := config.Default()
	d := New(id.DomainId(0), "local", cfg, testLogger(), nil, &id.PaneAllocator{}, &id.TabAllocator{}, Hooks{})

	_, cwd, _ := d.buildCommand([]string{"/bin/true"}, "/definitely/not/a/real/path", id.PaneId(1))
	if cwd != "" {
		t.Fatalf("cwd = %q, want empty after an unreadable path is dropped", cwd)
	}
}

func TestBuildCommandUsesExplicitArgvAndCwd(t *testing.T) {
	cfg := config.Default()
	d := New(id.DomainId(0), "local", cfg, testLogger(), nil, &id.PaneAllocator{}, &id.TabAllocator{}, Hooks{})

	argv, cwd, _ := d.buildCommand([]string{"/bin/echo", "hi"}, os.TempDir(), id.PaneId(2))
	if len(argv) != 2 || argv[0] != "/bin/echo" {
		t.Fatalf("argv = %v, want explicit argv preserved", argv)
	}
	if cwd != os.TempDir() {
		t.Fatalf("cwd = %q, want explicit cwd preserved", cwd)
	}
}
