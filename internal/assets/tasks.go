package assets

import (
	"context"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/pdfbuilder/internal/config"
	"git.home.luguber.info/inful/pdfbuilder/internal/fsutil"
	"git.home.luguber.info/inful/pdfbuilder/internal/logfields"
	"git.home.luguber.info/inful/pdfbuilder/internal/task"
)

// SyncTasks appends one synchronization unit per declared asset to the group.
// Each asset is synchronized at most once per build invocation.
func SyncTasks(cfg *config.Config, s *Synchronizer, group *task.Group) {
	for _, asset := range cfg.Assets {
		path := filepath.Join(cfg.Paths.ProjectRoot, asset.Path)
		branch := asset.Branch
		remote := asset.Repository
		slog.Debug("Adding asset resolution job", logfields.Path(path))

		group.AddUnit(&task.Unit{
			Name: "sync " + asset.Path,
			Job: func(ctx context.Context) error {
				return s.Sync(ctx, path, branch, remote)
			},
		})
	}
}

// CleanTasks appends one recursive-removal unit per declared asset. This is a
// standalone cleanup pass, never part of a build pass.
func CleanTasks(cfg *config.Config, group *task.Group) {
	for _, asset := range cfg.Assets {
		path := filepath.Join(cfg.Paths.ProjectRoot, asset.Path)
		slog.Debug("Adding asset cleanup job", logfields.Path(path))

		group.AddUnit(&task.Unit{
			Name: "clean " + asset.Path,
			Job: func(ctx context.Context) error {
				return fsutil.RemoveRecursive(path)
			},
		})
	}
}
