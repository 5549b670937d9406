// Package channel defines the platform-adapter contract (spec.md §4.1) and
// the process-wide registry of adapters (spec.md §4.3). Individual
// platforms (imessage, whatsapp, signal) live in sibling packages and
// register themselves against this one.
package channel

import (
	"context"
	"sync/atomic"

	"github.com/myndhyve/relay-agent/internal/envelope"
)

// Status is a plugin's connection state, reported on every heartbeat.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// Identity describes a plugin's static capabilities.
type Identity struct {
	Channel           envelope.Channel
	DisplayName       string
	IsSupported       bool
	UnsupportedReason string
}

// InboundFunc is invoked once per accepted inbound message, in source
// order. The supervisor wires this to the relay client's sendInbound call.
type InboundFunc func(ctx context.Context, in envelope.Ingress) error

// Plugin is the capability set every platform adapter satisfies
// (spec.md §4.1). Deliver must never return an error for a delivery
// failure — all failure modes are encoded in the returned DeliverResult.
type Plugin interface {
	Identity() Identity
	Login(ctx context.Context) error
	IsAuthenticated(ctx context.Context) bool
	Start(ctx context.Context, onInbound InboundFunc) error
	Deliver(ctx context.Context, eg envelope.Egress) envelope.DeliverResult
	GetStatus() Status
	Logout()
}

// StatusBox is an atomically-readable/writable Status, sized for the
// "plugin connection-status... a small enum so a single word suffices"
// shared-resource rule (spec.md §5). Adapters embed it and use
// Set/Get instead of a plain field plus mutex.
type StatusBox struct {
	v atomic.Value // string
}

func NewStatusBox() *StatusBox {
	sb := &StatusBox{}
	sb.Set(StatusDisconnected)
	return sb
}

func (s *StatusBox) Set(st Status) { s.v.Store(string(st)) }

func (s *StatusBox) Get() Status {
	v, _ := s.v.Load().(string)
	if v == "" {
		return StatusDisconnected
	}
	return Status(v)
}

// AuthRequiredError and PlatformUnavailableError are the two precondition
// failures Login may return (spec.md §4.1). Distinct types let callers
// tell "needs re-auth" apart from "platform is simply not usable here"
// via errors.As.
type AuthRequiredError struct{ Msg string }

func (e *AuthRequiredError) Error() string { return e.Msg }

type PlatformUnavailableError struct{ Msg string }

func (e *PlatformUnavailableError) Error() string { return e.Msg }
