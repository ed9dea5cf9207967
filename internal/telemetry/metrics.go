// Package telemetry exports load-run metrics to Prometheus and traces to OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"github.com/ogulcanaydogan/llm-perf-gate/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "perfgate"

// Recorder collects per-request and per-run metrics in a private registry. It is
// safe for concurrent use and satisfies loadgen.Observer.
type Recorder struct {
	registry   *prometheus.Registry
	latency    *prometheus.HistogramVec
	requests   *prometheus.CounterVec
	quantiles  *prometheus.GaugeVec
	errorRate  prometheus.Gauge
	throughput prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of generate requests by outcome.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.15, 0.2, 0.3, 0.5, 1, 2, 5, 10, 30},
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Generate requests by outcome.",
		}, []string{"outcome"}),
		quantiles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_latency_ms",
			Help:      "Latency quantiles of the last run over successful requests.",
		}, []string{"quantile"}),
		errorRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_error_rate",
			Help:      "Fraction of failed requests in the last run.",
		}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_throughput_rps",
			Help:      "Successful requests per second in the last run.",
		}),
	}
	r.registry.MustRegister(r.latency, r.requests, r.quantiles, r.errorRate, r.throughput)
	for _, o := range types.Outcomes {
		r.requests.WithLabelValues(string(o))
	}
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) Observe(res types.RequestResult) {
	outcome := string(res.Outcome)
	r.requests.WithLabelValues(outcome).Inc()
	r.latency.WithLabelValues(outcome).Observe(res.Latency.Seconds())
}

// RecordSummary publishes run-level gauges. Latency gauges are left unset for a
// run without successful requests.
func (r *Recorder) RecordSummary(s types.Summary) {
	r.errorRate.Set(s.ErrorRate)
	r.throughput.Set(s.ThroughputRPS)
	for label, v := range map[string]*float64{
		"0.5":  s.Latency.P50MS,
		"0.95": s.Latency.P95MS,
		"0.99": s.Latency.P99MS,
	} {
		if v != nil {
			r.quantiles.WithLabelValues(label).Set(*v)
		}
	}
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Push sends the registry to a Pushgateway under the given job, grouped by host.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	p := push.New(url, job).Gatherer(r.registry)
	if host, err := os.Hostname(); err == nil {
		p = p.Grouping("instance", host)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
