//go:build windows

package coordinator

import "os"

// terminateProcessGroup kills the Worker process. Windows has no
// SIGTERM-equivalent graceful stop at this layer.
func terminateProcessGroup(p *os.Process) error {
	return p.Kill()
}

// killProcessGroup kills the Worker process. Windows has no simple process
// group SIGKILL equivalent.
func killProcessGroup(p *os.Process) error {
	return p.Kill()
}
