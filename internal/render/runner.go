package render

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// CommandRunner executes one external command and reports its exit status as
// an error. env entries are appended to the process environment for that
// invocation only.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, env []string, dir string) error
}

// execRunner invokes commands through os/exec. Tool output is discarded; only
// the exit status matters to the pipeline.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, argv []string, env []string, dir string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) // #nosec G204 - argv built from the fixed severity table
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}
