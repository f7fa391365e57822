package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RelayResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "bridge",
		Name:      "fulfill_results_total",
		Help:      "Outcomes of bridge request fulfillment attempts.",
	}, []string{"direction", "destination", "result"})
	QueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "bridge",
		Name:      "recovery_queue_size",
		Help:      "Number of bridge requests waiting for confirmed completion after the last recovery pass.",
	})
	CheckpointHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "bridge",
		Name:      "checkpoint_block",
		Help:      "Last block stored as scanned for the network.",
	}, []string{"network"})
	RecoveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "relay",
		Subsystem: "bridge",
		Name:      "recovery_duration_seconds",
		Help:      "Duration of full recovery passes.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})
)
