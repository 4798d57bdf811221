package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sara"

// Collector exposes a Metrics instance to Prometheus. Values are read from
// a snapshot at scrape time, so nothing is recorded twice.
type Collector struct {
	metrics *Metrics

	requests *prometheus.Desc
	errors   *prometheus.Desc
	latency  *prometheus.Desc
	p50      *prometheus.Desc
	p95      *prometheus.Desc
}

// NewCollector creates a collector over m.
func NewCollector(m *Metrics) *Collector {
	return &Collector{
		metrics: m,
		requests: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "http", "requests_total"),
			"Requests served per route.",
			[]string{"route"}, nil),
		errors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "http", "request_errors_total"),
			"Failed requests per route and error code.",
			[]string{"route", "code"}, nil),
		latency: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "http", "request_duration_milliseconds_total"),
			"Total time spent serving each route.",
			[]string{"route"}, nil),
		p50: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "http", "request_duration_p50_seconds"),
			"Median latency over recent requests.",
			nil, nil),
		p95: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "http", "request_duration_p95_seconds"),
			"95th percentile latency over recent requests.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.errors
	ch <- c.latency
	ch <- c.p50
	ch <- c.p95
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.metrics.Snapshot()
	for route, rm := range snap.Routes {
		ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(rm.RequestCount), route)
		ch <- prometheus.MustNewConstMetric(c.latency, prometheus.CounterValue, float64(rm.TotalDuration), route)
		for code, n := range rm.ErrorCodes {
			ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(n), route, code)
		}
	}
	ch <- prometheus.MustNewConstMetric(c.p50, prometheus.GaugeValue, snap.P50.Seconds())
	ch <- prometheus.MustNewConstMetric(c.p95, prometheus.GaugeValue, snap.P95.Seconds())
}
