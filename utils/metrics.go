package utils

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyvault_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	PostOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storyvault_post_operations_total",
		Help: "Post lifecycle operations by outcome.",
	}, []string{"operation", "outcome"})

	WriteThrottled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storyvault_write_throttled_total",
		Help: "Write requests rejected by the per-IP limiter.",
	})
)

func init() {
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(PostOperations)
	prometheus.MustRegister(WriteThrottled)
}

// ObservePostOperation counts one create, update or delete outcome.
func ObservePostOperation(operation, outcome string) {
	PostOperations.WithLabelValues(operation, outcome).Inc()
}
