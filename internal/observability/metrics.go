package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec

	breachesNotified *prometheus.CounterVec
	scanFailures     *prometheus.CounterVec
	scanDuration     prometheus.Histogram
	scannedTickets   prometheus.Gauge

	compliancePercent *prometheus.GaugeVec
	checkpointStates  *prometheus.GaugeVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP errors by path, method and error code.",
		}, []string{"path", "method", "code"}),
		breachesNotified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_breach_notifications_total",
			Help: "Breach notifications emitted by checkpoint.",
		}, []string{"checkpoint"}),
		scanFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_scan_failures_total",
			Help: "Per-ticket scan failures by stage.",
		}, []string{"stage"}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_scan_duration_seconds",
			Help:    "Duration of one breach scan pass.",
			Buckets: prometheus.DefBuckets,
		}),
		scannedTickets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sla_scan_tickets",
			Help: "Tickets evaluated by the last scan.",
		}),
		compliancePercent: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sla_compliance_percent",
			Help: "Share of decided checkpoints that met their deadline.",
		}, []string{"checkpoint"}),
		checkpointStates: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sla_checkpoints",
			Help: "Checkpoints by compliance state in the last report.",
		}, []string{"checkpoint", "state"}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordBreachNotified counts one emitted breach notification.
func (m *Metrics) RecordBreachNotified(checkpoint string) {
	if m == nil {
		return
	}
	m.breachesNotified.WithLabelValues(checkpoint).Inc()
}

// RecordScanFailure counts a ticket the scanner had to skip.
func (m *Metrics) RecordScanFailure(stage string) {
	if m == nil {
		return
	}
	m.scanFailures.WithLabelValues(stage).Inc()
}

// RecordScan observes one finished scan pass.
func (m *Metrics) RecordScan(tickets int, duration time.Duration) {
	if m == nil {
		return
	}
	m.scannedTickets.Set(float64(tickets))
	m.scanDuration.Observe(duration.Seconds())
}

// RecordCompliance publishes the latest compliance figures for a checkpoint.
func (m *Metrics) RecordCompliance(checkpoint string, percent float64, met, breached, pending int) {
	if m == nil {
		return
	}
	m.compliancePercent.WithLabelValues(checkpoint).Set(percent)
	m.checkpointStates.WithLabelValues(checkpoint, "MET").Set(float64(met))
	m.checkpointStates.WithLabelValues(checkpoint, "BREACHED").Set(float64(breached))
	m.checkpointStates.WithLabelValues(checkpoint, "PENDING").Set(float64(pending))
}

// Gatherer exposes the registry, mostly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
