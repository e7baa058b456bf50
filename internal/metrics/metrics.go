// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics owns the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the service records into.
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	ActiveConnections prometheus.Gauge
	OutboxCommands    *prometheus.CounterVec
	OutboxPending     prometheus.Gauge
	EventsPublished   *prometheus.CounterVec
}

// Setup registers all collectors on reg and returns them together with the
// scrape handler. A nil reg uses a fresh registry.
func Setup(reg *prometheus.Registry) (*Metrics, http.Handler) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	m := &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "postdeck_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postdeck_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "postdeck_cache_hits_total",
			Help: "Post cache hits",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "postdeck_cache_misses_total",
			Help: "Post cache misses",
		}),
		ActiveConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "postdeck_websocket_connections",
			Help: "Number of active WebSocket connections",
		}),
		OutboxCommands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "postdeck_outbox_commands_total",
			Help: "Persistence commands by kind and final status",
		}, []string{"kind", "status"}),
		OutboxPending: f.NewGauge(prometheus.GaugeOpts{
			Name: "postdeck_outbox_pending",
			Help: "Persistence commands not yet confirmed or failed",
		}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "postdeck_events_published_total",
			Help: "Realtime events published by type",
		}, []string{"type"}),
	}

	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// RecordHTTPRequest counts one request and observes its latency.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheHit()  { m.CacheHits.Inc() }
func (m *Metrics) RecordCacheMiss() { m.CacheMisses.Inc() }

func (m *Metrics) IncrementConnections() { m.ActiveConnections.Inc() }
func (m *Metrics) DecrementConnections() { m.ActiveConnections.Dec() }
