package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/myndhyve/relay-agent/internal/config"
	"github.com/myndhyve/relay-agent/internal/devharness"
	"github.com/myndhyve/relay-agent/internal/diagnostics"
	"github.com/myndhyve/relay-agent/internal/envelope"
)

// runDev dispatches `relay dev <subcommand>` (spec.md §4.11, §4.12).
func runDev(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: relay dev [doctor|ping|envelope|webhook]")
		return exitUsage
	}
	switch args[0] {
	case "doctor":
		return runDevDoctor(args[1:])
	case "ping":
		return runDevPing(args[1:])
	case "envelope":
		return runDevEnvelope(args[1:])
	case "webhook":
		return runDevWebhook(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown dev subcommand: %s\n", args[0])
		return exitUsage
	}
}

func runDevDoctor(args []string) int {
	fs := flag.NewFlagSet("dev doctor", flag.ContinueOnError)
	cloudURL := fs.String("cloud-url", "", "override the configured cloud URL")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	dir := config.Dir()
	url := *cloudURL
	if url == "" {
		if cfg, err := config.Load(dir); err == nil {
			url = cfg.CloudURL
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report := diagnostics.RunDoctor(ctx, diagnostics.Options{
		ConfigDir: dir,
		CloudURL:  url,
		Version:   version,
	})

	for _, c := range report.Checks {
		status := "ok"
		if !c.OK {
			status = "FAIL"
		}
		fmt.Printf("[%s] %-20s %s\n", status, c.Name, c.Message)
		if !c.OK && c.Fix != "" {
			fmt.Printf("        fix: %s\n", c.Fix)
		}
	}
	fmt.Printf("\n%d passed, %d failed\n", report.Passed, report.Failed)

	if report.Failed > 0 {
		return exitGeneral
	}
	return exitOK
}

func runDevPing(args []string) int {
	fs := flag.NewFlagSet("dev ping", flag.ContinueOnError)
	cloudURL := fs.String("cloud-url", "", "override the configured cloud URL")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	url := *cloudURL
	if url == "" {
		if cfg, err := config.Load(config.Dir()); err == nil {
			url = cfg.CloudURL
		}
	}
	if url == "" {
		fmt.Fprintln(os.Stderr, "no cloud URL configured; pass --cloud-url or run `relay setup`")
		return exitGeneral
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		return exitGeneral
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unreachable: %v\n", err)
		return exitGeneral
	}
	defer resp.Body.Close()
	fmt.Printf("reachable: %s\n", resp.Status)
	return exitOK
}

func runDevEnvelope(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: relay dev envelope [create|validate] ...")
		return exitUsage
	}
	switch args[0] {
	case "create":
		return runDevEnvelopeCreate(args[1:])
	case "validate":
		return runDevEnvelopeValidate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown envelope subcommand: %s\n", args[0])
		return exitUsage
	}
}

func runDevEnvelopeCreate(args []string) int {
	fs := flag.NewFlagSet("dev envelope create", flag.ContinueOnError)
	channelFlag := fs.String("channel", "imessage", "channel: whatsapp, signal, imessage")
	text := fs.String("text", "hello from relay dev", "message text")
	peer := fs.String("peer", "", "override peerId")
	conversation := fs.String("conversation", "", "override conversationId")
	isGroup := fs.Bool("group", false, "mark the envelope as a group conversation")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	in := devharness.CreateTestEnvelope(devharness.TestEnvelopeOptions{
		Channel:        envelope.Channel(*channelFlag),
		Text:           *text,
		PeerID:         *peer,
		ConversationID: *conversation,
		IsGroup:        *isGroup,
	})

	printJSON(in)
	return exitOK
}

func runDevEnvelopeValidate(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: relay dev envelope validate <file>")
		return exitUsage
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "file not found: %s\n", args[0])
			return exitNotFound
		}
		fmt.Fprintf(os.Stderr, "read file: %v\n", err)
		return exitGeneral
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		fmt.Fprintf(os.Stderr, "parse JSON: %v\n", err)
		return exitGeneral
	}

	report := devharness.ValidateEnvelope(decoded)
	printJSON(report)
	if !report.Valid {
		return exitGeneral
	}
	return exitOK
}

func runDevWebhook(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: relay dev webhook test <channel> [--event type] [--text text]")
		return exitUsage
	}
	if args[0] != "test" {
		fmt.Fprintf(os.Stderr, "unknown webhook subcommand: %s\n", args[0])
		return exitUsage
	}
	args = args[1:]
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: relay dev webhook test <channel> [--event type] [--text text]")
		return exitUsage
	}

	channelArg := args[0]
	fs := flag.NewFlagSet("dev webhook test", flag.ContinueOnError)
	eventType := fs.String("event", "message", "webhook event type")
	text := fs.String("text", "hello from relay dev", "message text")
	if err := fs.Parse(args[1:]); err != nil {
		return exitUsage
	}

	ch := envelope.Channel(channelArg)
	if !ch.Known() {
		fmt.Fprintf(os.Stderr, "unknown channel: %s\n", channelArg)
		return exitUsage
	}

	ev := devharness.GenerateWebhookEvent(devharness.WebhookEventOptions{
		Channel:   ch,
		EventType: *eventType,
		Text:      *text,
	})
	printJSON(ev)
	return exitOK
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
