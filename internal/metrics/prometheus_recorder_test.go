package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewPrometheusRecorder_SameRegistryTwice(t *testing.T) {
	reg := prom.NewRegistry()
	first := NewPrometheusRecorder(reg)

	var second *PrometheusRecorder
	require.NotPanics(t, func() { second = NewPrometheusRecorder(reg) })

	// Both recorders must feed the same series.
	first.IncUnitResult("render", ResultSuccess)
	second.IncUnitResult("render", ResultSuccess)

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "pdfbuilder_unit_results_total" {
			require.Len(t, mf.GetMetric(), 1)
			require.EqualValues(t, 2, mf.GetMetric()[0].GetCounter().GetValue())
			return
		}
	}
	t.Fatalf("pdfbuilder_unit_results_total not gathered")
}

func TestPrometheusRecorder_RecordsAllSeries(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.ObserveGroupDuration("render", time.Second)
	rec.ObserveBuildDuration(2 * time.Second)
	rec.IncUnitResult("transform", ResultSkipped)
	rec.IncBuildOutcome("success")
	rec.IncSyncResult(false)
	rec.IncRenderStepFailure("latex-final", true)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"pdfbuilder_stage_group_duration_seconds",
		"pdfbuilder_build_duration_seconds",
		"pdfbuilder_unit_results_total",
		"pdfbuilder_build_outcomes_total",
		"pdfbuilder_asset_sync_results_total",
		"pdfbuilder_render_step_failures_total",
	} {
		require.True(t, names[want], "missing series %s", want)
	}
}
