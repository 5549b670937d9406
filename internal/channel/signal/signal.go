// Package signal is a channel adapter stub, the Signal counterpart of
// internal/channel/whatsapp: it satisfies the plugin contract so the
// registry and setup flow can list it, but device linking is not wired
// into this build.
package signal

import (
	"context"
	"fmt"

	"github.com/myndhyve/relay-agent/internal/channel"
	"github.com/myndhyve/relay-agent/internal/envelope"
	"github.com/myndhyve/relay-agent/internal/logging"
)

const linkURL = "https://relay.myndhyve.app/pair/signal"

type Adapter struct {
	status *channel.StatusBox
}

func New() *Adapter {
	return &Adapter{status: channel.NewStatusBox()}
}

func (a *Adapter) Identity() channel.Identity {
	return channel.Identity{
		Channel:           envelope.ChannelSignal,
		DisplayName:       "Signal",
		IsSupported:       false,
		UnsupportedReason: "Signal device linking is not yet wired into this build",
	}
}

func (a *Adapter) Login(ctx context.Context) error {
	fmt.Println("Scan this QR code in Signal > Linked Devices:")
	logging.PrintQRCode(linkURL)
	return &channel.PlatformUnavailableError{Msg: "Signal linking is not implemented in this build"}
}

func (a *Adapter) IsAuthenticated(ctx context.Context) bool { return false }

func (a *Adapter) Start(ctx context.Context, onInbound channel.InboundFunc) error {
	return &channel.PlatformUnavailableError{Msg: "Signal channel is not yet implemented"}
}

func (a *Adapter) Deliver(ctx context.Context, eg envelope.Egress) envelope.DeliverResult {
	return envelope.DeliverResult{Success: false, Error: "signal: channel not implemented", Retryable: false}
}

func (a *Adapter) GetStatus() channel.Status { return a.status.Get() }

func (a *Adapter) Logout() { a.status.Set(channel.StatusDisconnected) }

func init() {
	channel.Default.Register(New())
}
