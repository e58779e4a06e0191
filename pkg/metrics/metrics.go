// Package metrics exposes Prometheus instrumentation for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

var (
	// RunsTotal counts chat runs by terminal outcome (completed, failed,
	// cancelled, expired, timed_out, no_response, error).
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "threadgate",
		Name:      "runs_total",
		Help:      "Chat runs by terminal outcome.",
	}, []string{"outcome"})

	// RunPollAttempts observes how many status fetches each run consumed.
	RunPollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "threadgate",
		Name:      "run_poll_attempts",
		Help:      "Status fetches per run before it settled.",
		Buckets:   prometheus.LinearBuckets(1, 3, 10),
	})

	// ChatDuration observes end-to-end chat latency in seconds.
	ChatDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "threadgate",
		Name:      "chat_duration_seconds",
		Help:      "End-to-end chat request latency.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
	})

	// UploadsTotal counts file uploads by result (uploaded, failed).
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "threadgate",
		Name:      "uploads_total",
		Help:      "File uploads by result.",
	}, []string{"result"})
)

// Handler returns the /metrics endpoint handler.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
