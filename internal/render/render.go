// Package render drives the external LaTeX toolchain. A render is a fixed
// sequence of tool invocations with a named severity per step: early passes
// tolerate failure (they are frequently self-correcting on a later pass),
// later passes abort the whole render.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/pdfbuilder/internal/fsutil"
	"git.home.luguber.info/inful/pdfbuilder/internal/logfields"
	"git.home.luguber.info/inful/pdfbuilder/internal/metrics"
)

// Severity classifies the consequence of a step failing.
type Severity string

const (
	// SeverityTolerant logs the failure and lets the sequence continue.
	SeverityTolerant Severity = "tolerant"
	// SeverityFatal aborts the sequence and fails the render.
	SeverityFatal Severity = "fatal"
)

// Step is a single external-tool invocation in a render sequence.
type Step struct {
	Name     string
	Argv     []string
	Severity Severity
}

// Format is a supported render output format.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatDVI Format = "dvi"
)

// UnsupportedFormatError reports a format the renderer cannot produce. It is
// a configuration error: no commands have been run when it is returned.
type UnsupportedFormatError struct {
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("render: %q is not an output format", e.Format)
}

// Error reports a fatal-severity step failure. No artifact has been deployed
// when it is returned.
type Error struct {
	Artifact string
	Step     string
	Index    int // 1-based position in the sequence
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render %s: step %d (%s): %v", e.Artifact, e.Index, e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Renderer runs staged render sequences. The command runner is injectable so
// tests can observe invocations without a TeX toolchain installed.
type Renderer struct {
	run      CommandRunner
	recorder metrics.Recorder
}

// NewRenderer creates a renderer backed by os/exec.
func NewRenderer() *Renderer {
	return &Renderer{run: execRunner{}, recorder: metrics.NoopRecorder{}}
}

// WithRunner injects a custom command runner (fluent helper, used in tests).
func (r *Renderer) WithRunner(run CommandRunner) *Renderer {
	if run != nil {
		r.run = run
	}
	return r
}

// WithRecorder injects a metrics recorder (fluent helper).
func (r *Renderer) WithRecorder(rec metrics.Recorder) *Renderer {
	if rec != nil {
		r.recorder = rec
	}
	return r
}

// sequence builds the canonical severity table for one render. The first
// render pass and the index pass tolerate failure; the reference-resolving
// passes and the dvi conversion do not.
func sequence(sourceFile, workingDir string, format Format) []Step {
	latexArgv := []string{"pdflatex", "--interaction", "batchmode", "--output-directory", workingDir, sourceFile}
	if format == FormatDVI {
		latexArgv = []string{"pdflatex", "--output-format", "dvi", "--interaction", "batchmode", "--output-directory", workingDir, sourceFile}
	}
	stem := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))

	steps := []Step{
		{Name: "latex-initial", Argv: latexArgv, Severity: SeverityTolerant},
		{Name: "makeindex", Argv: []string{"makeindex", "-s", filepath.Join(workingDir, "python.ist"), filepath.Join(workingDir, stem+".idx")}, Severity: SeverityTolerant},
		{Name: "latex-references", Argv: latexArgv, Severity: SeverityFatal},
		{Name: "latex-final", Argv: latexArgv, Severity: SeverityFatal},
	}
	if format == FormatDVI {
		steps = append(steps, Step{Name: "dvipdf", Argv: []string{"dvipdf", stem + ".dvi"}, Severity: SeverityFatal})
	}
	return steps
}

// RenderToArtifact runs the staged render of sourceFile and, on full success,
// copies the produced PDF to deployedPath. The TEXINPUTS search path is
// scoped to each invocation; nothing global is mutated, so concurrent renders
// cannot cross-talk.
func (r *Renderer) RenderToArtifact(ctx context.Context, sourceFile, deployedPath, workingDir string, format Format) error {
	switch format {
	case FormatPDF, FormatDVI:
	default:
		err := &UnsupportedFormatError{Format: format}
		slog.Error("Not rendering artifact", logfields.Artifact(filepath.Base(sourceFile)), logfields.Error(err))
		return err
	}

	artifact := filepath.Base(sourceFile)
	env := []string{"TEXINPUTS=.:" + workingDir + ":"}
	steps := sequence(sourceFile, workingDir, format)

	for i, step := range steps {
		idx := i + 1
		err := r.run.Run(ctx, step.Argv, env, workingDir)
		if err == nil {
			slog.Info("Render step completed",
				logfields.Artifact(artifact), logfields.Step(step.Name), logfields.StepIdx(idx), slog.Int("of", len(steps)))
			continue
		}
		r.recorder.IncRenderStepFailure(step.Name, step.Severity == SeverityFatal)
		if step.Severity == SeverityTolerant {
			slog.Warn("Render step failed early, continuing cautiously",
				logfields.Artifact(artifact), logfields.Step(step.Name), logfields.StepIdx(idx), logfields.Error(err))
			continue
		}
		slog.Error("Render step failed, terminating",
			logfields.Artifact(artifact), logfields.Step(step.Name), logfields.StepIdx(idx), logfields.Error(err))
		return &Error{Artifact: artifact, Step: step.Name, Index: idx, Err: err}
	}

	rendered := strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile)) + ".pdf"
	if err := fsutil.CopyIfNeeded(rendered, deployedPath, "pdf"); err != nil {
		return &Error{Artifact: artifact, Step: "deploy-copy", Index: len(steps) + 1, Err: err}
	}
	return nil
}
