package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/pdfbuilder/internal/build"
	"git.home.luguber.info/inful/pdfbuilder/internal/config"
	"git.home.luguber.info/inful/pdfbuilder/internal/logfields"
)

// Watcher re-runs the build when the generator's tex output changes. Rapid
// event bursts are debounced into a single rebuild.
type Watcher struct {
	service  *build.Service
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher creates a watcher over the configured LaTeX source directory.
func NewWatcher(cfg *config.Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	return &Watcher{
		service:  build.NewService(cfg),
		watcher:  fsw,
		debounce: 2 * time.Second, // absorb bursts from the upstream generator
	}, nil
}

// Run builds once, then watches until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	dir := w.service.SourceDir()
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", dir, err)
	}
	slog.Info("Watching for source changes", logfields.Path(dir))

	w.rebuild(ctx)

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			slog.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		case <-pending:
			w.rebuild(ctx)
		}
	}
}

func (w *Watcher) rebuild(ctx context.Context) {
	report, err := w.service.Run(ctx)
	if err != nil {
		slog.Error("Watch build failed", logfields.Error(err))
		return
	}
	if rerr := report.Err(); rerr != nil {
		slog.Warn("Watch build finished with failures", logfields.RunID(report.RunID), logfields.Error(rerr))
	}
}

// relevant filters out events the pipeline does not consume: only writes,
// creates, and removes of .tex and .sty files trigger a rebuild.
func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".tex" || ext == ".sty"
}
