package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics owns a private registry so several servers can coexist in one process.
type metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	prescriptions *prometheus.CounterVec
	submissions   prometheus.Counter
	wsClients     prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guidance_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guidance_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		prescriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guidance_prescription_attempts_total",
			Help: "Weekly prescription attempts by outcome.",
		}, []string{"outcome"}),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guidance_public_submissions_total",
			Help: "Concerns received through the public form.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "guidance_dashboard_ws_clients",
			Help: "Connected dashboard websocket clients.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.latency,
		m.prescriptions,
		m.submissions,
		m.wsClients,
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *metrics) prescriptionOutcome(outcome string) {
	m.prescriptions.WithLabelValues(outcome).Inc()
}
