// Package metrics exports generation metrics through Prometheus.
package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/sghaida/buildergen/builder"
)

const namespace = "buildergen"

// PrometheusRecorder implements builder.Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg            *prom.Registry
	unitsGenerated *prom.CounterVec
	skipped        *prom.CounterVec
	fatal          *prom.CounterVec
	renderDuration *prom.HistogramVec
	passDuration   prom.Histogram
}

var _ builder.Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder constructs the metrics and registers them on reg. A
// nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		unitsGenerated: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "units_generated_total",
			Help:      "Builders written to the sink, by target",
		}, []string{"target"}),
		skipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "descriptors_skipped_total",
			Help:      "Descriptors skipped with a warning, by reason",
		}, []string{"reason"}),
		fatal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Fatal sink failures, by target",
		}, []string{"target"}),
		renderDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering one builder",
			Buckets:   prom.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"target"}),
		passDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of a generation pass",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(pr.unitsGenerated, pr.skipped, pr.fatal, pr.renderDuration, pr.passDuration)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) IncGenerated(target string) {
	p.unitsGenerated.WithLabelValues(target).Inc()
}

func (p *PrometheusRecorder) IncSkipped(reason string) {
	p.skipped.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) IncFatal(target string) {
	p.fatal.WithLabelValues(target).Inc()
}

func (p *PrometheusRecorder) ObserveRender(target string, d time.Duration) {
	p.renderDuration.WithLabelValues(target).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObservePass(d time.Duration) {
	p.passDuration.Observe(d.Seconds())
}

// WriteTextfile writes the registry in the node_exporter textfile-collector
// format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
