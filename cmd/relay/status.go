package main

import (
	"fmt"
	"time"

	"github.com/myndhyve/relay-agent/internal/config"
	"github.com/myndhyve/relay-agent/internal/daemon"
)

// runStatus implements `relay status` (spec.md §6): always exits 0, with
// liveness and configuration encoded in the printed output rather than
// the exit code.
func runStatus(args []string) int {
	dir := config.Dir()
	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Printf("config: error: %v\n", err)
		return exitOK
	}

	if !cfg.Registered() {
		fmt.Println("relay: not configured (run `relay setup`)")
		return exitOK
	}

	fmt.Printf("channel:     %s\n", cfg.Channel)
	fmt.Printf("relayId:     %s\n", cfg.RelayID)
	fmt.Printf("cloudUrl:    %s\n", cfg.CloudURL)
	if cfg.TokenValid(time.Now()) {
		fmt.Printf("deviceToken: valid until %s\n", cfg.TokenExpiresAt.Format(time.RFC3339))
	} else {
		fmt.Println("deviceToken: expired or absent (run `relay setup`)")
	}

	if pid, ok := daemon.GetDaemonPid(config.PidPath(dir)); ok {
		fmt.Printf("daemon:      running (pid %d)\n", pid)
	} else {
		fmt.Println("daemon:      not running")
	}
	return exitOK
}
