//go:build !windows

package launcher

import (
	"os"
	"syscall"
)

// sysProcAttr puts the node in its own process group so its children go
// down with it.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// sendTermSignal sends SIGTERM for a graceful shutdown.
func sendTermSignal(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
