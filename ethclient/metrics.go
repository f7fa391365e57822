package ethclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Subsystem: "rpc",
		Name:      "request_results_total",
		Help:      "JSON-RPC request outcomes per network and method.",
	}, []string{"network", "query", "status"})

	RequestDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "relay",
		Subsystem: "rpc",
		Name:      "request_duration_seconds",
		Help:      "JSON-RPC request latency per network and method.",
		Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 20},
	}, []string{"network", "query"})
)

func ObserveError(network, query string, err error) {
	if err == nil {
		RequestResults.WithLabelValues(network, query, "ok").Inc()
		return
	}
	var rpcErr rpc.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		RequestResults.WithLabelValues(network, query, "timeout").Inc()
	case errors.As(err, &rpcErr):
		RequestResults.WithLabelValues(network, query, fmt.Sprintf("error-%d", rpcErr.ErrorCode())).Inc()
	default:
		RequestResults.WithLabelValues(network, query, "error").Inc()
	}
}

func ObserveDuration(network, query string) func() time.Duration {
	return prometheus.NewTimer(RequestDurations.WithLabelValues(network, query)).ObserveDuration
}
