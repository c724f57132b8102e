// Package build wires configuration, the content synchronizer, the pipeline
// assembler, and the executor into runnable passes: build, sync, and clean.
package build

import (
	"context"
	"os"

	"git.home.luguber.info/inful/pdfbuilder/internal/assets"
	"git.home.luguber.info/inful/pdfbuilder/internal/config"
	"git.home.luguber.info/inful/pdfbuilder/internal/latex"
	"git.home.luguber.info/inful/pdfbuilder/internal/metrics"
	"git.home.luguber.info/inful/pdfbuilder/internal/render"
	"git.home.luguber.info/inful/pdfbuilder/internal/retry"
	"git.home.luguber.info/inful/pdfbuilder/internal/task"
)

// Service runs pipeline passes for one loaded configuration.
type Service struct {
	cfg      *config.Config
	renderer *render.Renderer
	sync     *assets.Synchronizer
	executor *task.Executor
	recorder metrics.Recorder
}

// NewService creates a service with collaborators derived from cfg.
func NewService(cfg *config.Config) *Service {
	policy := retry.NewPolicy(
		retry.BackoffMode(cfg.Build.Retry.Mode),
		cfg.Build.Retry.Initial.Std(),
		cfg.Build.Retry.Max.Std(),
		cfg.Build.Retry.MaxRetries,
	)
	return &Service{
		cfg:      cfg,
		renderer: render.NewRenderer(),
		sync:     assets.NewSynchronizer().WithPolicy(policy),
		executor: task.NewExecutor(cfg.Build.Workers),
		recorder: metrics.NoopRecorder{},
	}
}

// WithRecorder injects a metrics recorder into the service and its
// collaborators (fluent helper).
func (s *Service) WithRecorder(rec metrics.Recorder) *Service {
	if rec != nil {
		s.recorder = rec
		s.renderer = s.renderer.WithRecorder(rec)
		s.sync = s.sync.WithRecorder(rec)
		s.executor = s.executor.WithRecorder(rec)
	}
	return s
}

// WithRenderer overrides the renderer (fluent helper, used in tests).
func (s *Service) WithRenderer(r *render.Renderer) *Service {
	if r != nil {
		s.renderer = r
	}
	return s
}

// BuildGraph assembles the full build pass: asset synchronization first, then
// the transform, render, deploy, and link stage groups.
func (s *Service) BuildGraph() *task.Group {
	root := task.NewGroup("build")
	assets.SyncTasks(s.cfg, s.sync, root.AddGroup("assets"))
	latex.PDFTasks(s.cfg, s.renderer, root)
	return root
}

// SyncGraph assembles an assets-only pass.
func (s *Service) SyncGraph() *task.Group {
	root := task.NewGroup("sync")
	assets.SyncTasks(s.cfg, s.sync, root.AddGroup("assets"))
	return root
}

// CleanGraph assembles the asset cleanup pass.
func (s *Service) CleanGraph() *task.Group {
	root := task.NewGroup("clean")
	assets.CleanTasks(s.cfg, root.AddGroup("assets"))
	return root
}

// Run executes the full build pass.
func (s *Service) Run(ctx context.Context) (*task.Report, error) {
	if err := s.ensureDirs(); err != nil {
		return nil, err
	}
	return s.executor.Run(ctx, s.BuildGraph())
}

// Sync executes the assets-only pass.
func (s *Service) Sync(ctx context.Context) (*task.Report, error) {
	return s.executor.Run(ctx, s.SyncGraph())
}

// Clean executes the asset cleanup pass.
func (s *Service) Clean(ctx context.Context) (*task.Report, error) {
	return s.executor.Run(ctx, s.CleanGraph())
}

// ensureDirs creates the output directories a pass writes into.
func (s *Service) ensureDirs() error {
	for _, dir := range []string{latex.LatexDir(s.cfg), latex.DeployDir(s.cfg)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return nil
}

// SourceDir exposes the directory the generator writes tex files into; watch
// mode monitors it for changes.
func (s *Service) SourceDir() string {
	return latex.LatexDir(s.cfg)
}
