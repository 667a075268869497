// Command whisperd is the whisperd speech-to-text daemon. It exposes the
// front process (HTTP API + registry + coordinator), the worker process
// (ASR models + decode loop), and the install/start/stop service wrapper
// as subcommands of a single binary.
package main

import (
	"whisperd/internal/cli"
)

func main() {
	cli.Execute()
}
