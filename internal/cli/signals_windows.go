//go:build windows

package cli

import (
	"os"
	"syscall"
)

// shutdownSignals lists the signals that invoke the shutdown orchestrator.
// Windows has no SIGHUP equivalent at this layer.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
