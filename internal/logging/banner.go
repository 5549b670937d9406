package logging

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mdp/qrterminal/v3"
)

// ANSI color codes.
const (
	reset   = "\033[0m"
	bold    = "\033[1m"
	cyan    = "\033[36m"
	green   = "\033[32m"
	yellow  = "\033[33m"
	magenta = "\033[35m"
	dim     = "\033[2m"
)

// Logo lines — relay agent ASCII art.
var logoLines = [5]string{
	`  _ __ ___| | __ _ _   _ `,
	` | '__/ _ \ |/ _` + "`" + ` | | | |`,
	` | | |  __/ | (_| | |_| |`,
	` |_|  \___|_|\__,_|\__, |`,
	`                    |___/ `,
}

// channelColor picks an accent color per bridged platform so `relay start`
// for whatsapp/signal/imessage is visually distinct at a glance.
func channelColor(channel string) string {
	switch channel {
	case "whatsapp":
		return green
	case "signal":
		return cyan
	case "imessage":
		return magenta
	default:
		return yellow
	}
}

// PrintBanner prints the relay agent's ASCII logo, the bridged channel,
// version, and relay id. Colors are used only when stderr is a TTY.
func PrintBanner(channel, ver, relayID string) {
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	accent := channelColor(channel)

	for _, line := range logoLines {
		if color {
			fmt.Fprintf(os.Stderr, "%s%s%s\n", bold+accent, line, reset)
		} else {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	if relayID == "" {
		relayID = "(unregistered)"
	}
	if color {
		fmt.Fprintf(os.Stderr, "\n  %sversion%s %s   %schannel%s %s   %srelay%s %s\n\n",
			dim, reset, ver, dim, reset, channel, dim, reset, relayID)
	} else {
		fmt.Fprintf(os.Stderr, "\n  version %s   channel %s   relay %s\n\n", ver, channel, relayID)
	}
}

// addrToURL converts a listen address (e.g. ":4327", "0.0.0.0:4327",
// "127.0.0.1:4327") into an http://localhost:<port> URL.
func addrToURL(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		port = strings.TrimPrefix(addr, ":")
	}
	if port == "" || port == "80" {
		return "http://localhost"
	}
	return "http://localhost:" + port
}

// PrintMetricsURL prints the local metrics endpoint's address to stderr,
// for operators who enabled --metrics-addr.
func PrintMetricsURL(addr string) {
	url := addrToURL(addr) + "/metrics"
	isTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if isTTY {
		fmt.Fprintf(os.Stderr, "  %s%s➜%s  metrics at %s%s%s\n\n", bold, green, reset, bold, url, reset)
	} else {
		fmt.Fprintf(os.Stderr, "  ➜  metrics at %s\n\n", url)
	}
}

// PrintQRCode renders a pairing URL as a terminal QR code (WhatsApp/Signal
// login). Falls back to printing the bare URL when stderr isn't a TTY.
func PrintQRCode(url string) {
	isTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if !isTTY {
		fmt.Fprintf(os.Stderr, "  scan or open: %s\n", url)
		return
	}
	fmt.Fprintf(os.Stderr, "  %s%s➜%s  %s%s%s\n\n", bold, green, reset, bold, url, reset)
	qrterminal.GenerateWithConfig(url, qrterminal.Config{
		Level:          qrterminal.L,
		Writer:         os.Stderr,
		QuietZone:      1,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
	})
	fmt.Fprintln(os.Stderr)
}
