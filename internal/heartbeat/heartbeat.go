// Package heartbeat runs the periodic status push to the cloud control
// plane described in spec.md §4.5.
package heartbeat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/myndhyve/relay-agent/internal/channel"
	"github.com/myndhyve/relay-agent/internal/metrics"
	"github.com/myndhyve/relay-agent/internal/relayclient"
)

// Client is the subset of relayclient.Client the loop needs, narrowed for
// testability.
type Client interface {
	Heartbeat(ctx context.Context, relayID string, req relayclient.HeartbeatRequest) error
}

// Run sends a heartbeat immediately, then on every interval tick, until
// ctx is cancelled. statusFn returns the plugin's current connection
// status; startedAt anchors the uptime field. A transient send failure is
// logged and the loop continues; a DeviceTokenExpiredError aborts and
// propagates to the supervisor.
func Run(ctx context.Context, client Client, relayID string, interval time.Duration, statusFn func() channel.Status, startedAt time.Time) error {
	tick := func() error {
		platform := statusFn()
		req := relayclient.HeartbeatRequest{
			Status:         mapStatus(platform),
			UptimeSec:      int64(time.Since(startedAt).Seconds()),
			PlatformStatus: string(platform),
		}
		err := client.Heartbeat(ctx, relayID, req)
		if err == nil {
			metrics.HeartbeatsSent.Inc()
			return nil
		}

		var expired *relayclient.DeviceTokenExpiredError
		if errors.As(err, &expired) {
			return err
		}

		metrics.HeartbeatsFailed.Inc()
		slog.Warn("heartbeat failed, will retry next tick", "error", err)
		return nil
	}

	if err := tick(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := tick(); err != nil {
				return err
			}
		}
	}
}

// mapStatus implements spec.md §4.5's mapping: connected iff platformStatus
// is connected, offline iff disconnected, degraded otherwise (e.g.
// connecting).
func mapStatus(s channel.Status) relayclient.HeartbeatStatus {
	switch s {
	case channel.StatusConnected:
		return relayclient.HeartbeatConnected
	case channel.StatusDisconnected:
		return relayclient.HeartbeatOffline
	default:
		return relayclient.HeartbeatDegraded
	}
}
