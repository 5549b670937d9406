// Package outboundpoller runs the claim/deliver/ack loop described in
// spec.md §4.6: every tick it claims pending outbound work items from the
// cloud and delivers each one, sequentially, through a channel plugin.
package outboundpoller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/myndhyve/relay-agent/internal/channel"
	"github.com/myndhyve/relay-agent/internal/envelope"
	"github.com/myndhyve/relay-agent/internal/metrics"
	"github.com/myndhyve/relay-agent/internal/relayclient"
)

const claimBatchSize = 10

// Client is the subset of relayclient.Client the loop needs.
type Client interface {
	ClaimOutbound(ctx context.Context, relayID string, max int) ([]envelope.WorkItem, error)
	AckOutbound(ctx context.Context, relayID, workID string, ack envelope.AckRequest) error
}

// Run claims and delivers outbound work items every interval until ctx is
// cancelled. Deliveries within a tick are sequential: parallelizing them
// could reorder sends within a conversation (spec.md §4.6).
func Run(ctx context.Context, client Client, plugin channel.Plugin, relayID string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := tick(ctx, client, plugin, relayID); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func tick(ctx context.Context, client Client, plugin channel.Plugin, relayID string) error {
	items, err := client.ClaimOutbound(ctx, relayID, claimBatchSize)
	if err != nil {
		if isDeviceTokenExpired(err) {
			return err
		}
		slog.Warn("outbound claim failed, will retry next tick", "error", err)
		return nil
	}

	for _, item := range items {
		metrics.OutboundClaimed.Inc()
		result := plugin.Deliver(ctx, item.Envelope)
		metrics.OutboundDelivered.WithLabelValues(string(item.Envelope.Channel), boolLabel(result.Success)).Inc()

		ack := envelope.AckRequest{
			Success:           result.Success,
			PlatformMessageID: result.PlatformMessageID,
			Error:             result.Error,
			Retryable:         result.Retryable,
		}
		if err := client.AckOutbound(ctx, relayID, item.WorkID, ack); err != nil {
			if isDeviceTokenExpired(err) {
				return err
			}
			slog.Warn("outbound ack failed, not retried", "error", err, "workId", item.WorkID)
		}
	}
	return nil
}

func isDeviceTokenExpired(err error) bool {
	var expired *relayclient.DeviceTokenExpiredError
	return errors.As(err, &expired)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
