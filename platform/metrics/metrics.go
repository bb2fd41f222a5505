// Package metrics exposes Prometheus collectors for the API and scheduler.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the collectors for one process.
type Registry struct {
	reg              *prometheus.Registry
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	webhookEvents    *prometheus.CounterVec
	campaignDispatch *prometheus.CounterVec
	emailsSent       *prometheus.CounterVec
}

// New creates a registry with process and Go runtime collectors registered.
func New(namespace string) *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Inbound email webhook events by event type and outcome.",
		}, []string{"event", "outcome"}),
		campaignDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaign_dispatch_total",
			Help:      "Campaign dispatch attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Individual outbound emails by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
		r.httpRequests,
		r.httpLatency,
		r.webhookEvents,
		r.campaignDispatch,
		r.emailsSent,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the matched route.
func (r *Registry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// WebhookEvent counts one inbound webhook event.
func (r *Registry) WebhookEvent(event, outcome string) {
	if r == nil {
		return
	}
	r.webhookEvents.WithLabelValues(event, outcome).Inc()
}

// CampaignDispatched counts one campaign dispatch attempt.
func (r *Registry) CampaignDispatched(kind, outcome string) {
	if r == nil {
		return
	}
	r.campaignDispatch.WithLabelValues(kind, outcome).Inc()
}

// EmailSent counts one outbound email.
func (r *Registry) EmailSent(outcome string) {
	if r == nil {
		return
	}
	r.emailsSent.WithLabelValues(outcome).Inc()
}
