package metrics

import (
	"errors"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	groupDuration *prom.HistogramVec
	buildDuration prom.Histogram
	unitResults   *prom.CounterVec
	buildOutcome  *prom.CounterVec
	syncResults   *prom.CounterVec
	stepFailures  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the pipeline metrics against
// reg. Idempotent per registry: a second recorder reuses the collectors the
// first one registered, so both feed the same series.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	return &PrometheusRecorder{
		groupDuration: register(reg, prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "pdfbuilder",
			Name:      "stage_group_duration_seconds",
			Help:      "Duration of individual pipeline stage groups",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})),
		buildDuration: register[prom.Histogram](reg, prom.NewHistogram(prom.HistogramOpts{
			Namespace: "pdfbuilder",
			Name:      "build_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		})),
		unitResults: register(reg, prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pdfbuilder",
			Name:      "unit_results_total",
			Help:      "Unit-of-work result counts by stage and outcome",
		}, []string{"stage", "result"})),
		buildOutcome: register(reg, prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pdfbuilder",
			Name:      "build_outcomes_total",
			Help:      "Pipeline run outcomes by final status",
		}, []string{"outcome"})),
		syncResults: register(reg, prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pdfbuilder",
			Name:      "asset_sync_results_total",
			Help:      "Asset synchronization results by success/failure",
		}, []string{"result"})),
		stepFailures: register(reg, prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pdfbuilder",
			Name:      "render_step_failures_total",
			Help:      "External render tool step failures by step and severity",
		}, []string{"step", "severity"})),
	}
}

// register adds c to reg, returning the already-registered collector when one
// with the same descriptor exists.
func register[C prom.Collector](reg *prom.Registry, c C) C {
	if err := reg.Register(c); err != nil {
		var are prom.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(C)
		}
		panic(err)
	}
	return c
}

func (p *PrometheusRecorder) ObserveGroupDuration(stage string, d time.Duration) {
	if p == nil || p.groupDuration == nil {
		return
	}
	p.groupDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncUnitResult(stage string, result ResultLabel) {
	if p == nil || p.unitResults == nil {
		return
	}
	p.unitResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncSyncResult(success bool) {
	if p == nil || p.syncResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.syncResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) IncRenderStepFailure(step string, fatal bool) {
	if p == nil || p.stepFailures == nil {
		return
	}
	sev := "tolerant"
	if fatal {
		sev = "fatal"
	}
	p.stepFailures.WithLabelValues(step, sev).Inc()
}

// HTTPHandler returns an http.Handler serving Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		reg = prom.DefaultRegisterer.(*prom.Registry)
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
