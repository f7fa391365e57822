package network

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var TransactionResults = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "relay",
	Subsystem: "network",
	Name:      "transaction_results_total",
	Help:      "Outcomes of signed transactions per network and contract method.",
}, []string{"network", "method", "status"})
