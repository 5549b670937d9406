// Package metrics provides Prometheus instrumentation for the relay agent.
// Counters and gauges are process-wide (promauto registers against the
// default registry) and are exposed locally via promhttp when a metrics
// address is configured, for an optional local Prometheus/Grafana scrape.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Heartbeat metrics.
var (
	HeartbeatsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_heartbeats_sent_total",
		Help: "Total number of heartbeats sent to the cloud control plane.",
	})

	HeartbeatsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_heartbeats_failed_total",
		Help: "Total number of heartbeat ticks that failed transiently.",
	})
)

// Inbound/outbound message metrics.
var (
	InboundForwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_inbound_forwarded_total",
		Help: "Total number of inbound messages forwarded to the cloud.",
	}, []string{"channel"})

	InboundForwardFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_inbound_forward_failed_total",
		Help: "Total number of inbound forwards that failed (logged and swallowed).",
	}, []string{"channel"})

	OutboundClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_outbound_claimed_total",
		Help: "Total number of outbound work items claimed from the cloud.",
	})

	OutboundDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_outbound_delivered_total",
		Help: "Total number of outbound deliveries, by success.",
	}, []string{"channel", "success"})
)

// Connection/reconnection metrics.
var (
	ReconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_reconnect_attempts_total",
		Help: "Total number of supervisor reconnection attempts.",
	})

	// ConnectionStatus is registered, but nothing in this repository sets
	// it, so it exports no series.
	ConnectionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_connection_status",
		Help: "Current channel connection status (1 = this status is active).",
	}, []string{"channel", "status"})

	Watermark = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_imessage_watermark",
		Help: "Current iMessage polling watermark (highest ROWID seen, forwarded or not).",
	}, []string{"channel"})
)
