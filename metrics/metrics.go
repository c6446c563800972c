package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every collector of the service.
const Namespace = "checkout_upsell"

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPLatency      *prometheus.HistogramVec
	AnalyticsEvents  *prometheus.CounterVec
	ResolverDefaults *prometheus.CounterVec
	MirrorErrors     prometheus.Counter
	WebhooksReceived *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route and status.",
			}, []string{"method", "route", "status"}),
			HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency distribution of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route"}),
			AnalyticsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analytics_events_total",
				Help:      "Analytics rows written by kind.",
			}, []string{"kind"}),
			ResolverDefaults: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolver_defaults_total",
				Help:      "Default configurations served by reason.",
			}, []string{"reason"}),
			MirrorErrors: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_mirror_errors_total",
				Help:      "Analytics events that could not be mirrored.",
			}),
			WebhooksReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhooks_received_total",
				Help:      "Shopify webhooks received by topic.",
			}, []string{"topic"}),
		}

		prometheus.MustRegister(
			metricsInstance.HTTPRequests,
			metricsInstance.HTTPLatency,
			metricsInstance.AnalyticsEvents,
			metricsInstance.ResolverDefaults,
			metricsInstance.MirrorErrors,
			metricsInstance.WebhooksReceived,
		)
	})
	return metricsInstance
}

// Default returns the service collectors.
func Default() *Metrics {
	return Registry(Namespace)
}
