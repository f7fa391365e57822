package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AlertStaleBridgeRequest = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "alert",
		Subsystem: "relay",
		Name:      "stale_bridge_request",
		Help:      "Shows queued bridge requests that are still not complete on their destination, valued by age in seconds.",
	}, []string{"direction", "source_network", "destination_network", "request_id", "block_number"})
	AlertUnresolvedDestination = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "alert",
		Subsystem: "relay",
		Name:      "unresolved_destination",
		Help:      "Shows queued withdrawals whose chain id doesn't match any configured mainnet, valued by age in seconds.",
	}, []string{"source_network", "request_id", "chain_id", "block_number"})
)
