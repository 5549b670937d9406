// Package whatsapp is a channel adapter stub: it satisfies the plugin
// contract (spec.md §4.1) and is registered so `relay setup` can offer
// WhatsApp as a channel, but Start reports it unsupported until a real
// multi-device pairing session is wired in. Login renders a pairing QR
// the same way the teacher renders its worker-registration QR.
package whatsapp

import (
	"context"
	"fmt"

	"github.com/myndhyve/relay-agent/internal/channel"
	"github.com/myndhyve/relay-agent/internal/envelope"
	"github.com/myndhyve/relay-agent/internal/logging"
)

const pairingURL = "https://relay.myndhyve.app/pair/whatsapp"

type Adapter struct {
	status *channel.StatusBox
}

func New() *Adapter {
	return &Adapter{status: channel.NewStatusBox()}
}

func (a *Adapter) Identity() channel.Identity {
	return channel.Identity{
		Channel:           envelope.ChannelWhatsApp,
		DisplayName:       "WhatsApp",
		IsSupported:       false,
		UnsupportedReason: "WhatsApp multi-device pairing is not yet wired into this build",
	}
}

func (a *Adapter) Login(ctx context.Context) error {
	fmt.Println("Scan this QR code with WhatsApp > Linked Devices:")
	logging.PrintQRCode(pairingURL)
	return &channel.PlatformUnavailableError{Msg: "WhatsApp pairing is not implemented in this build"}
}

func (a *Adapter) IsAuthenticated(ctx context.Context) bool { return false }

func (a *Adapter) Start(ctx context.Context, onInbound channel.InboundFunc) error {
	return &channel.PlatformUnavailableError{Msg: "WhatsApp channel is not yet implemented"}
}

func (a *Adapter) Deliver(ctx context.Context, eg envelope.Egress) envelope.DeliverResult {
	return envelope.DeliverResult{Success: false, Error: "whatsapp: channel not implemented", Retryable: false}
}

func (a *Adapter) GetStatus() channel.Status { return a.status.Get() }

func (a *Adapter) Logout() { a.status.Set(channel.StatusDisconnected) }

func init() {
	channel.Default.Register(New())
}
