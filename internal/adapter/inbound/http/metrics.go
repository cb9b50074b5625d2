// Package http provides the HTTP transport adapter (C10) for the gateway.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsNamespace prefixes every Prometheus metric this adapter exposes.
const metricsNamespace = "datahub_gateway"

// Metrics holds every Prometheus metric the gateway records. Pass to
// components that need to record observations.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	SecurityDecisions *prometheus.CounterVec
	QueryRetries      prometheus.Counter
	AuditDropsTotal   prometheus.Counter
	RateLimitKeys     prometheus.Gauge
}

// NewMetrics creates and registers every metric with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Total number of MCP requests processed",
			},
			[]string{"method", "status"}, // method=tools/call, status=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "request_duration_seconds",
				Help:      "End-to-end request duration, validate_bearer_token through the final node",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		SecurityDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "security_decisions_total",
				Help:      "Comprehensive security analysis outcomes",
			},
			[]string{"outcome"}, // outcome=approved/blocked
		),
		QueryRetries: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "execute_query_retries_total",
				Help:      "Total execute_query retry attempts against transient MDH errors",
			},
		),
		AuditDropsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "audit_drops_total",
				Help:      "Total audit records dropped due to backpressure",
			},
		),
		RateLimitKeys: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "rate_limit_keys",
				Help:      "Number of active rate limit keys",
			},
		),
	}
}
