//go:build windows

package launcher

import (
	"os"
	"syscall"
)

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}

// sendTermSignal kills the process; Windows has no SIGTERM equivalent for
// console-less children.
func sendTermSignal(p *os.Process) error {
	return p.Kill()
}
