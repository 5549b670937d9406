package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/myndhyve/relay-agent/internal/backoff"
	"github.com/myndhyve/relay-agent/internal/channel"
	"github.com/myndhyve/relay-agent/internal/config"
	"github.com/myndhyve/relay-agent/internal/daemon"
	"github.com/myndhyve/relay-agent/internal/envelope"
	"github.com/myndhyve/relay-agent/internal/logging"
	"github.com/myndhyve/relay-agent/internal/metrics"
	"github.com/myndhyve/relay-agent/internal/relayclient"
	"github.com/myndhyve/relay-agent/internal/supervisor"
)

const (
	defaultHeartbeatIntervalSec    = 30
	defaultOutboundPollIntervalSec = 5
)

// runStart implements `relay start [--daemon] [--verbose]` (spec.md §6,
// §4.7): respawns itself as a detached background process when --daemon
// is set, otherwise runs the supervisor in the foreground until a signal
// or a fatal error ends it.
func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	asDaemon := fs.Bool("daemon", false, "run as a detached background process")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "expose /metrics on this loopback address (e.g. 127.0.0.1:9327)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	dir := config.Dir()
	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitGeneral
	}
	if !cfg.Registered() {
		fmt.Fprintln(os.Stderr, "relay is not configured: run `relay setup` first")
		return exitGeneral
	}

	if *asDaemon {
		return startAsDaemon(dir, *verbose, *metricsAddr)
	}
	return startForeground(cfg, *verbose, *metricsAddr)
}

func startAsDaemon(dir string, verbose bool, metricsAddr string) int {
	fgArgs := []string{"start"}
	if verbose {
		fgArgs = append(fgArgs, "--verbose")
	}
	if metricsAddr != "" {
		fgArgs = append(fgArgs, "--metrics-addr", metricsAddr)
	}

	pid, err := daemon.SpawnDaemon(config.PidPath(dir), config.LogPath(dir), fgArgs)
	if err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			fmt.Printf("daemon already running (pid %d)\n", pid)
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "spawn daemon: %v\n", err)
		return exitGeneral
	}
	fmt.Printf("daemon started (pid %d), logging to %s\n", pid, config.LogPath(dir))
	return exitOK
}

func startForeground(cfg *config.Config, verbose bool, metricsAddr string) int {
	if verbose {
		logging.SetLevel(slog.LevelDebug)
	}
	logging.PrintBanner(cfg.Channel, version, cfg.RelayID)

	plugin := channel.Default.Lookup(envelope.Channel(cfg.Channel))
	if plugin == nil {
		fmt.Fprintf(os.Stderr, "no plugin registered for channel %q\n", cfg.Channel)
		return exitGeneral
	}

	client := relayclient.New(cfg.CloudURL, nil)
	client.SetCredentials(cfg.DeviceToken, cfg.TokenExpiresAt)

	heartbeatSec := cfg.HeartbeatIntervalSec
	if heartbeatSec == 0 {
		heartbeatSec = defaultHeartbeatIntervalSec
	}
	pollSec := cfg.OutboundPollIntervalSec
	if pollSec == 0 {
		pollSec = defaultOutboundPollIntervalSec
	}

	// Track SIGINT separately from SIGTERM so a clean Ctrl-C reports exit
	// code 130 (spec.md §6) while `relay stop`'s SIGTERM reports 0.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	var receivedSIGINT bool
	go func() {
		s := <-sigCh
		receivedSIGINT = s == syscall.SIGINT
		cancel()
	}()
	defer signal.Stop(sigCh)

	if metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, metricsAddr); err != nil && ctx.Err() == nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		logging.PrintMetricsURL(metricsAddr)
	}

	runErr := supervisor.Run(ctx, supervisor.Config{
		Client:               client,
		Plugin:               plugin,
		RelayID:              cfg.RelayID,
		HeartbeatInterval:    time.Duration(heartbeatSec) * time.Second,
		OutboundPollInterval: time.Duration(pollSec) * time.Second,
		Backoff:              backoff.Default(),
		StartedAt:            time.Now(),
	})

	if runErr == nil {
		if receivedSIGINT {
			return exitSIGINT
		}
		return exitOK
	}

	var expired *relayclient.DeviceTokenExpiredError
	if errors.As(runErr, &expired) {
		fmt.Fprintln(os.Stderr, "device token expired, run `relay setup`")
	} else {
		fmt.Fprintf(os.Stderr, "relay supervisor stopped: %v\n", runErr)
	}
	return exitGeneral
}
