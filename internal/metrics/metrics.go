// Package metrics exposes Prometheus counters for the calendar engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for the result dimension
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// ProviderCalls counts outbound calendar provider operations.
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "focustime_provider_calls_total",
		Help: "Outbound calendar provider calls by operation and result.",
	}, []string{"operation", "result"})

	// TokenRefreshes counts OAuth refresh-grant exchanges.
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "focustime_token_refreshes_total",
		Help: "OAuth token refresh attempts by result.",
	}, []string{"result"})

	// SyncOperations counts individual sub-operations of managed-event resyncs.
	SyncOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "focustime_sync_operations_total",
		Help: "Managed-event sync sub-operations by kind and result.",
	}, []string{"op", "result"})
)

// Handler returns the /metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
