// Package logfields defines canonical log field name constants to avoid drift across packages.
package logfields

import "log/slog"

const (
	KeyArtifact = "artifact"
	KeyStage    = "stage"
	KeyStep     = "step"
	KeyStepIdx  = "step_index"
	KeyBranch   = "branch"
	KeyPath     = "path"
	KeyURL      = "url"
	KeyRunID    = "run_id"
	KeyError    = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Artifact(name string) slog.Attr { return slog.String(KeyArtifact, name) }
func Stage(name string) slog.Attr    { return slog.String(KeyStage, name) }
func Step(name string) slog.Attr     { return slog.String(KeyStep, name) }
func StepIdx(i int) slog.Attr        { return slog.Int(KeyStepIdx, i) }
func Branch(b string) slog.Attr      { return slog.String(KeyBranch, b) }
func Path(p string) slog.Attr        { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr         { return slog.String(KeyURL, u) }
func RunID(id string) slog.Attr      { return slog.String(KeyRunID, id) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
