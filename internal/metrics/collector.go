// Package metrics exposes Prometheus collectors for the HTTP layer, the
// remote gateways and scene synthesis jobs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "veo_director"

// Collector owns its registry so several instances can coexist in tests.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	gatewayRequestsTotal   *prometheus.CounterVec
	gatewayRequestDuration *prometheus.HistogramVec

	sceneJobsTotal    *prometheus.CounterVec
	sceneJobDuration  prometheus.Histogram
	sceneJobsInFlight prometheus.Gauge
	scenePolls        prometheus.Counter

	batchesTotal   *prometheus.CounterVec
	sessionsActive prometheus.Gauge
}

func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		gatewayRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Total number of analysis and scripting requests",
		}, []string{"gateway", "status"}),
		gatewayRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Analysis and scripting request duration in seconds",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"gateway"}),
		sceneJobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scene_jobs_total",
			Help:      "Total number of finished scene synthesis jobs",
		}, []string{"outcome"}),
		sceneJobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scene_job_duration_seconds",
			Help:      "Scene synthesis job duration in seconds",
			Buckets:   []float64{10, 30, 60, 120, 180, 300, 600, 1200},
		}),
		sceneJobsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scene_jobs_in_flight",
			Help:      "Scene synthesis jobs currently running",
		}),
		scenePolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scene_operation_polls_total",
			Help:      "Total number of synthesis operation polls",
		}),
		batchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of finished generate-all batches",
		}, []string{"outcome"}),
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory",
		}),
	}
}

func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGatewayCall records one analysis or scripting call. gateway is "analysis" or "scripting".
func (c *Collector) RecordGatewayCall(gateway string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	c.gatewayRequestsTotal.WithLabelValues(gateway, outcome(err)).Inc()
	c.gatewayRequestDuration.WithLabelValues(gateway).Observe(duration.Seconds())
}

func (c *Collector) SceneJobStarted() {
	if c == nil {
		return
	}
	c.sceneJobsInFlight.Inc()
}

func (c *Collector) SceneJobFinished(err error, duration time.Duration) {
	if c == nil {
		return
	}
	c.sceneJobsInFlight.Dec()
	c.sceneJobsTotal.WithLabelValues(outcome(err)).Inc()
	c.sceneJobDuration.Observe(duration.Seconds())
}

func (c *Collector) ScenePolled() {
	if c == nil {
		return
	}
	c.scenePolls.Inc()
}

func (c *Collector) RecordBatch(err error) {
	if c == nil {
		return
	}
	c.batchesTotal.WithLabelValues(outcome(err)).Inc()
}

func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.sessionsActive.Set(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}

func statusCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return strconv.Itoa(code)
	}
}
