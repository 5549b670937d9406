// Command relay is the myndhyve relay agent: it bridges a single chat
// platform (WhatsApp, Signal, or iMessage) on this machine to the
// myndhyve cloud control plane. See `relay --help`-equivalent output
// below; argument parsing here is deliberately minimal (the CLI
// framework itself is an out-of-scope collaborator) — just enough flag
// surface to drive the relay agent runtime.
package main

import (
	"fmt"
	"os"

	"github.com/myndhyve/relay-agent/internal/logging"

	// Side-effect imports: each channel package registers itself into
	// channel.Default on init.
	_ "github.com/myndhyve/relay-agent/internal/channel/imessage"
	_ "github.com/myndhyve/relay-agent/internal/channel/signal"
	_ "github.com/myndhyve/relay-agent/internal/channel/whatsapp"
)

var version = "dev"

// Exit-code convention (spec.md §6): 0 success, 1 general error, 2 usage
// error, 3 not-found, 4 unauthorized, 130 SIGINT.
const (
	exitOK           = 0
	exitGeneral      = 1
	exitUsage        = 2
	exitNotFound     = 3
	exitUnauthorized = 4
	exitSIGINT       = 130
)

func main() {
	logging.Setup()

	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUsage)
	}

	var code int
	switch os.Args[1] {
	case "setup":
		code = runSetup(os.Args[2:])
	case "start":
		code = runStart(os.Args[2:])
	case "stop":
		code = runStop(os.Args[2:])
	case "status":
		code = runStatus(os.Args[2:])
	case "dev":
		code = runDev(os.Args[2:])
	case "version":
		fmt.Println(version)
		code = exitOK
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		code = exitUsage
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: relay [setup|start|stop|status|dev|version] [flags]")
	fmt.Fprintln(os.Stderr, "  relay setup                         register this machine with the cloud")
	fmt.Fprintln(os.Stderr, "  relay start [--daemon] [--verbose]  run the relay supervisor")
	fmt.Fprintln(os.Stderr, "  relay stop                          stop a running daemon")
	fmt.Fprintln(os.Stderr, "  relay status                        print configuration and liveness")
	fmt.Fprintln(os.Stderr, "  relay dev doctor|ping|envelope|webhook")
}
