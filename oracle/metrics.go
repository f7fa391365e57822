package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "relay",
		Subsystem: "oracle",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of price update cycles.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
	})
	BatchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "oracle",
		Name:      "batch_results_total",
		Help:      "Results of batched oracle update transactions.",
	}, []string{"network", "kind", "status"})
	TrackedSymbols = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "oracle",
		Name:      "tracked_symbols",
		Help:      "Number of symbols with a value computed in the last cycle.",
	}, []string{"kind"})
	DiscoveredPairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "oracle",
		Name:      "discovered_pairs_total",
		Help:      "Pairs found by dex pair discovery.",
	}, []string{"network", "dex"})
	DiscoveryBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "oracle",
		Name:      "discovery_backlog",
		Help:      "Pair discovery requests waiting for a retry.",
	})
)

func batchStatus(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
