// Package metrics exposes Prometheus counters and gauges for the
// send/receive/control paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	ClientState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgevox_client_state",
		Help: "Current client facade state: 0=Idle, 1=Connected, 2=Streaming",
	})
	CaptureBufferFillMs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgevox_capture_buffer_fill_ms",
		Help: "Milliseconds of audio currently held in the capture buffer",
	})
)

// Counters
var (
	PacketsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgevox_rtp_packets_sent_total",
		Help: "Total RTP packets transmitted",
	})
	PacketsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgevox_arrival_ring_drops_total",
		Help: "Total received datagrams dropped because the receiver's arrival ring was full",
	})
	PacketsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgevox_rtp_packets_received_total",
		Help: "Total well-formed RTP packets received",
	})
	MalformedPacketsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgevox_rtp_malformed_packets_total",
		Help: "Total datagrams dropped for failing RTP validation",
	})
	ControlReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgevox_control_reconnects_total",
		Help: "Total control channel reconnect attempts",
	})
)

// Histograms
var (
	DrainLatencyMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgevox_drain_latency_ms",
		Help:    "Wall-clock duration of one periodic drain-and-send cycle",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50},
	})
)
