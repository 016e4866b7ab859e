package pane

import "fmt"

// cwdLinkForPid returns the /proc symlink pointing at a process's current
// working directory. On platforms without /proc this simply will not
// resolve, and callers silently fall back to the last cached value; it is
// never fatal.
func cwdLinkForPid(pid int) string {
	return fmt.Sprintf("/proc/%d/cwd", pid)
}
