package task

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/pdfbuilder/internal/logfields"
	"git.home.luguber.info/inful/pdfbuilder/internal/metrics"
)

// UnitError records a single failed unit together with its owning group.
type UnitError struct {
	Group string
	Unit  string
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %s in group %s: %v", e.Unit, e.Group, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// Report summarizes one executor run.
type Report struct {
	RunID    string
	Executed int
	Skipped  int
	Failures []*UnitError
	Duration time.Duration
}

// Err returns a combined error when any unit failed, nil otherwise.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d units failed (run %s)", len(r.Failures), r.Executed, r.RunID)
}

// Executor walks a task graph. Child groups run strictly in declared order;
// unit children of the same group run concurrently on a bounded worker pool.
type Executor struct {
	workers  int
	recorder metrics.Recorder
}

// NewExecutor creates an executor. workers <= 0 selects runtime.NumCPU().
func NewExecutor(workers int) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{workers: workers, recorder: metrics.NoopRecorder{}}
}

// WithRecorder injects a metrics recorder (fluent helper).
func (e *Executor) WithRecorder(rec metrics.Recorder) *Executor {
	if rec != nil {
		e.recorder = rec
	}
	return e
}

// Run executes the root group and returns a per-run report. A unit failure
// never aborts sibling units; failures are collected into the report. Context
// cancellation stops scheduling of further groups and units.
func (e *Executor) Run(ctx context.Context, root *Group) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	start := time.Now()
	slog.Info("Starting pipeline run", logfields.RunID(report.RunID), slog.String("root", root.Name), slog.Int("workers", e.workers))

	err := e.runGroup(ctx, root, report)

	report.Duration = time.Since(start)
	e.recorder.ObserveBuildDuration(report.Duration)
	outcome := "success"
	if len(report.Failures) > 0 || err != nil {
		outcome = "failed"
	}
	e.recorder.IncBuildOutcome(outcome)
	slog.Info("Pipeline run finished",
		logfields.RunID(report.RunID),
		slog.String("outcome", outcome),
		slog.Int("executed", report.Executed),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", len(report.Failures)),
		slog.Duration("duration", report.Duration))
	if err != nil {
		return report, err
	}
	return report, nil
}

// runGroup executes a group's children in order: consecutive units form a
// batch executed concurrently; subgroups are executed recursively between
// batches.
func (e *Executor) runGroup(ctx context.Context, g *Group, report *Report) error {
	t0 := time.Now()
	defer func() {
		e.recorder.ObserveGroupDuration(g.Name, time.Since(t0))
	}()

	var batch []*Unit
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		e.runBatch(ctx, g, batch, report)
		batch = batch[:0]
		return nil
	}

	for _, child := range g.Children() {
		switch n := child.(type) {
		case *Unit:
			batch = append(batch, n)
		case *Group:
			if err := flush(); err != nil {
				return err
			}
			if err := e.runGroup(ctx, n, report); err != nil {
				return err
			}
		}
	}
	return flush()
}

// runBatch runs units concurrently, bounded by the worker pool.
func (e *Executor) runBatch(ctx context.Context, g *Group, units []*Unit, report *Report) {
	sem := make(chan struct{}, e.workers)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, u := range units {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(u *Unit) {
			defer func() { <-sem; wg.Done() }()

			if reason := skipReason(u); reason != "" {
				slog.Debug("Skipping unit", logfields.Stage(g.Name), slog.String("unit", u.Name), slog.String("reason", reason), logfields.Path(u.Target))
				mu.Lock()
				report.Skipped++
				mu.Unlock()
				e.recorder.IncUnitResult(g.Name, metrics.ResultSkipped)
				return
			}

			err := runJob(ctx, u)
			mu.Lock()
			report.Executed++
			if err != nil {
				report.Failures = append(report.Failures, &UnitError{Group: g.Name, Unit: u.Name, Err: err})
			}
			mu.Unlock()
			if err != nil {
				e.recorder.IncUnitResult(g.Name, metrics.ResultFailed)
				slog.Error("Unit failed", logfields.Stage(g.Name), slog.String("unit", u.Name), logfields.Error(err))
			} else {
				e.recorder.IncUnitResult(g.Name, metrics.ResultSuccess)
			}
		}(u)
	}
	wg.Wait()
}

// runJob invokes the unit's job, converting a panic into a unit failure so a
// misbehaving job cannot take down the whole run.
func runJob(ctx context.Context, u *Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return u.Job(ctx)
}

// skipReason applies the incremental-skip contract. A unit with a declared
// dependency is gated on that dependency existing; when both hints resolve,
// a target not older than its dependency is considered up to date. The empty
// string means the unit must run.
func skipReason(u *Unit) string {
	if u.Dependency == "" {
		return ""
	}
	depInfo, err := os.Stat(u.Dependency)
	if err != nil {
		return "dependency missing"
	}
	if u.Target == "" {
		return ""
	}
	targetInfo, err := os.Lstat(u.Target)
	if err != nil {
		return ""
	}
	if !targetInfo.ModTime().Before(depInfo.ModTime()) {
		return "target up to date"
	}
	return ""
}
