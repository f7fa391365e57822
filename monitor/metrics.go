package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LatestHeadBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "subscription",
		Name:      "latest_head_block",
		Help:      "Shows the latest confirmed head block seen by the subscription. Logs up to this block are waiting to be fetched.",
	}, []string{"network", "address"})
	LatestFetchedBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "subscription",
		Name:      "latest_fetched_block",
		Help:      "Shows the latest block whose logs were fetched by the subscription.",
	}, []string{"network", "address"})
	LatestProcessedBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relay",
		Subsystem: "subscription",
		Name:      "latest_processed_block",
		Help:      "Shows the latest block whose logs were delivered to every handler.",
	}, []string{"network", "address"})
	HandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "subscription",
		Name:      "handler_failures_total",
		Help:      "Number of events whose handler returned an error or panicked.",
	}, []string{"network", "event"})
)
