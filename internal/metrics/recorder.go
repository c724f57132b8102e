package metrics

import "time"

// ResultLabel enumerates unit result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultSkipped ResultLabel = "skipped"
	ResultFailed  ResultLabel = "failed"
)

// Recorder defines observability hooks for pipeline metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe for nil receivers
// when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveGroupDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncUnitResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // outcome: success|failed
	IncSyncResult(success bool)
	IncRenderStepFailure(step string, fatal bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveGroupDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncUnitResult(string, ResultLabel)          {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) IncSyncResult(bool)                         {}
func (NoopRecorder) IncRenderStepFailure(string, bool)          {}
