//go:build darwin

package coordinator

import (
	"os"
	"syscall"
)

// terminateProcessGroup sends SIGTERM to the Worker's entire process group.
func terminateProcessGroup(p *os.Process) error {
	return syscall.Kill(-p.Pid, syscall.SIGTERM)
}

// killProcessGroup sends SIGKILL to the Worker's entire process group.
func killProcessGroup(p *os.Process) error {
	return syscall.Kill(-p.Pid, syscall.SIGKILL)
}
