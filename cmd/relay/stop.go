package main

import (
	"fmt"
	"os"

	"github.com/myndhyve/relay-agent/internal/config"
	"github.com/myndhyve/relay-agent/internal/daemon"
)

// runStop implements `relay stop` (spec.md §6): signal the daemon to
// terminate and clear its PID file. Stopping an already-stopped daemon is
// not an error.
func runStop(args []string) int {
	dir := config.Dir()
	stopped, err := daemon.StopDaemon(config.PidPath(dir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "stop daemon: %v\n", err)
		return exitGeneral
	}
	if !stopped {
		fmt.Println("daemon not running")
		return exitOK
	}
	fmt.Println("daemon stopped")
	return exitOK
}
