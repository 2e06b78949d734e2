package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered once at package init on the default registry and
// exposed on /metrics.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawlchat_http_requests_total",
		Help: "HTTP requests served, by endpoint and status code.",
	}, []string{"endpoint", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crawlchat_http_request_duration_seconds",
		Help:    "HTTP request latency, by endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	chatTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crawlchat_chat_turns_total",
		Help: "Chat turns processed, by outcome.",
	}, []string{"outcome"})
)
