package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics of the service.
type Collector struct {
	registry *prometheus.Registry

	// Fetches counts data-source calls by source ("readings", "transactions",
	// "balances") and outcome ("ok", "error").
	Fetches *prometheus.CounterVec
	// Fallbacks counts substituted values by source and policy.
	Fallbacks *prometheus.CounterVec
	// PollTicks counts poller task runs by poller name.
	PollTicks *prometheus.CounterVec
	// AlertsSent counts delivered push alerts by band.
	AlertsSent *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates a collector with its own registry so tests can build many of them.
func New(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Data source fetches by source and outcome",
		}, []string{"source", "outcome"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fallbacks_total",
			Help:      "Fallback values served instead of a failed fetch",
		}, []string{"source", "policy"}),
		PollTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poller_ticks_total",
			Help:      "Poller task invocations",
		}, []string{"poller"}),
		AlertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_sent_total",
			Help:      "Push alerts delivered by band",
		}, []string{"band"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.Fetches,
		c.Fallbacks,
		c.PollTicks,
		c.AlertsSent,
		c.HTTPRequests,
		c.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
