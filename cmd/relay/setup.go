package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/myndhyve/relay-agent/internal/channel"
	"github.com/myndhyve/relay-agent/internal/config"
	"github.com/myndhyve/relay-agent/internal/envelope"
	"github.com/myndhyve/relay-agent/internal/relayclient"
	"github.com/myndhyve/relay-agent/internal/util/sanitize"
)

const defaultCloudURL = "https://relay.myndhyve.app"

// maxLabelLen bounds the relay label the same way a terminal title is
// bounded: it ends up displayed back to the operator (relay status, the
// cloud dashboard), not just stored.
const maxLabelLen = 64

// runSetup implements `relay setup` (spec.md §6): register this machine,
// authenticate the chosen channel plugin, and exchange the activation
// code for a device token. Mirrors the teacher's worker.go
// register-if-no-state flow, generalized across three channel types.
func runSetup(args []string) int {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	channelFlag := fs.String("channel", "", "channel to bridge: whatsapp, signal, or imessage")
	label := fs.String("label", "", "human-readable label for this relay (defaults to hostname)")
	cloudURL := fs.String("cloud-url", defaultCloudURL, "cloud control-plane base URL")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if !envelope.Channel(*channelFlag).Known() {
		fmt.Fprintf(os.Stderr, "--channel is required and must be one of whatsapp, signal, imessage\n")
		return exitUsage
	}
	if *label == "" {
		h, _ := os.Hostname()
		*label = h
	}
	*label = sanitize.Title(*label, maxLabelLen)

	dir := config.Dir()
	if err := config.EnsureDir(dir); err != nil {
		fmt.Fprintf(os.Stderr, "create config directory: %v\n", err)
		return exitGeneral
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitGeneral
	}
	if cfg.Registered() && cfg.TokenValid(time.Now()) {
		fmt.Printf("already registered: channel=%s relayId=%s\n", cfg.Channel, cfg.RelayID)
		return exitOK
	}

	userAuthToken := os.Getenv("MYNDHYVE_API_TOKEN")
	if userAuthToken == "" {
		creds, err := config.LoadCredentials(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load credentials: %v\n", err)
			return exitGeneral
		}
		if creds == nil || creds.IDToken == "" {
			fmt.Fprintln(os.Stderr, "not authenticated: sign in first (credentials.json not found), or set MYNDHYVE_API_TOKEN")
			return exitUnauthorized
		}
		userAuthToken = creds.IDToken
	}

	plugin := channel.Default.Lookup(envelope.Channel(*channelFlag))
	if plugin == nil {
		fmt.Fprintf(os.Stderr, "no plugin registered for channel %q\n", *channelFlag)
		return exitGeneral
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := plugin.Login(ctx); err != nil {
		var authErr *channel.AuthRequiredError
		var unavailErr *channel.PlatformUnavailableError
		switch {
		case errors.As(err, &authErr):
			fmt.Fprintf(os.Stderr, "channel login failed: %s\n", authErr.Msg)
			return exitUnauthorized
		case errors.As(err, &unavailErr):
			fmt.Fprintf(os.Stderr, "channel unavailable: %s\n", unavailErr.Msg)
			return exitGeneral
		default:
			fmt.Fprintf(os.Stderr, "channel login failed: %v\n", err)
			return exitGeneral
		}
	}

	client := relayclient.New(*cloudURL, nil)
	regResp, err := client.RegisterWithRetry(ctx, relayclient.RegisterRequest{
		Channel:       envelope.Channel(*channelFlag),
		Label:         *label,
		UserAuthToken: userAuthToken,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "registration failed: %v\n", err)
		if isUnauthorized(err) {
			return exitUnauthorized
		}
		return exitGeneral
	}

	hostname, _ := os.Hostname()
	actResp, err := client.ActivateWithRetry(ctx, relayclient.ActivateRequest{
		RelayID:        regResp.RelayID,
		ActivationCode: regResp.ActivationCode,
		CLIVersion:     version,
		DeviceMeta: relayclient.DeviceMeta{
			OS:       runtime.GOOS,
			Arch:     runtime.GOARCH,
			Hostname: hostname,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "activation failed: %v\n", err)
		return exitGeneral
	}

	cfg.Channel = *channelFlag
	cfg.RelayID = regResp.RelayID
	cfg.ActivationCode = ""
	cfg.DeviceToken = actResp.DeviceToken
	cfg.TokenExpiresAt = actResp.TokenExpiresAt
	cfg.HeartbeatIntervalSec = actResp.HeartbeatIntervalSec
	cfg.OutboundPollIntervalSec = actResp.OutboundPollIntervalSec
	cfg.CloudURL = *cloudURL

	if err := config.Save(dir, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "save config: %v\n", err)
		return exitGeneral
	}

	slog.Info("relay registered", "channel", cfg.Channel, "relayId", cfg.RelayID)
	fmt.Printf("setup complete: channel=%s relayId=%s\n", cfg.Channel, cfg.RelayID)
	return exitOK
}

func isUnauthorized(err error) bool {
	var expired *relayclient.DeviceTokenExpiredError
	return errors.As(err, &expired)
}
