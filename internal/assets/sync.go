// Package assets synchronizes externally hosted content into the project
// tree: clone when the local path is absent, update in place when present.
package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/pdfbuilder/internal/logfields"
	"git.home.luguber.info/inful/pdfbuilder/internal/metrics"
	"git.home.luguber.info/inful/pdfbuilder/internal/retry"
)

// SyncError reports a failed clone or update, naming the local path or the
// remote reference that could not be synchronized.
type SyncError struct {
	Op     string // "clone" or "update"
	Path   string
	Remote string
	Err    error
}

func (e *SyncError) Error() string {
	if e.Op == "clone" {
		return fmt.Sprintf("sync: clone %s: %v", e.Remote, e.Err)
	}
	return fmt.Sprintf("sync: update %s: %v", e.Path, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Synchronizer performs idempotent asset fetches with retry on transient
// failures.
type Synchronizer struct {
	policy   retry.Policy
	recorder metrics.Recorder
}

// NewSynchronizer creates a synchronizer with the default retry policy.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{policy: retry.DefaultPolicy(), recorder: metrics.NoopRecorder{}}
}

// WithPolicy overrides the retry policy (fluent helper).
func (s *Synchronizer) WithPolicy(p retry.Policy) *Synchronizer { s.policy = p; return s }

// WithRecorder injects a metrics recorder (fluent helper).
func (s *Synchronizer) WithRecorder(rec metrics.Recorder) *Synchronizer {
	if rec != nil {
		s.recorder = rec
	}
	return s
}

// Sync brings localPath up to date with remote at branch. An existing path is
// updated in place; a missing path is cloned. Calling Sync twice against an
// unchanged remote leaves localPath in the same observable state.
func (s *Synchronizer) Sync(ctx context.Context, localPath, branch, remote string) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := s.policy.Delay(attempt)
			slog.Debug("Retrying asset sync", logfields.Path(localPath), slog.Int("attempt", attempt), slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				s.recorder.IncSyncResult(false)
				return &SyncError{Op: opFor(localPath), Path: localPath, Remote: remote, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}
		lastErr = s.syncOnce(ctx, localPath, branch, remote)
		if lastErr == nil {
			s.recorder.IncSyncResult(true)
			return nil
		}
		if attempt >= s.policy.MaxRetries || !transient(lastErr) {
			break
		}
	}
	s.recorder.IncSyncResult(false)
	return lastErr
}

// opFor names the operation a sync of localPath would perform next: update
// when the path exists, clone when it does not.
func opFor(localPath string) string {
	if _, err := os.Stat(localPath); err == nil {
		return "update"
	}
	return "clone"
}

func (s *Synchronizer) syncOnce(ctx context.Context, localPath, branch, remote string) error {
	if _, err := os.Stat(localPath); err == nil {
		if err := updateRepo(ctx, localPath, branch); err != nil {
			return &SyncError{Op: "update", Path: localPath, Remote: remote, Err: err}
		}
		slog.Info("Updated asset repository", logfields.Path(localPath), logfields.Branch(branch))
		return nil
	}

	base, name := filepath.Split(localPath)
	if base != "" {
		if err := os.MkdirAll(base, 0o750); err != nil {
			return &SyncError{Op: "clone", Path: localPath, Remote: remote, Err: err}
		}
	}
	if err := cloneRepo(ctx, filepath.Join(base, name), branch, remote); err != nil {
		return &SyncError{Op: "clone", Path: localPath, Remote: remote, Err: err}
	}
	slog.Info("Cloned asset repository", logfields.URL(remote), logfields.Branch(branch), logfields.Path(localPath))
	return nil
}

func cloneRepo(ctx context.Context, path, branch, remote string) error {
	opts := &git.CloneOptions{URL: remote}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}
	if _, err := git.PlainCloneContext(ctx, path, false, opts); err != nil {
		return fmt.Errorf("clone: %w", err)
	}
	return nil
}

// updateRepo fetches origin and fast-forwards the local branch to the remote
// tip. Update-in-place is itself idempotent: an already up-to-date repository
// is left untouched.
func updateRepo(ctx context.Context, path, branch string) error {
	repository, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("open repo: %w", err)
	}
	wt, err := repository.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}

	fetchOpts := &git.FetchOptions{
		RemoteName: "origin",
		Tags:       git.NoTags,
		RefSpecs:   []ggitcfg.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
	}
	if err := repository.FetchContext(ctx, fetchOpts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch: %w", err)
	}

	remoteRef, err := repository.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return fmt.Errorf("remote ref %s: %w", branch, err)
	}

	localBranchRef := plumbing.NewBranchReferenceName(branch)
	if _, lerr := repository.Reference(localBranchRef, true); lerr != nil {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: localBranchRef, Create: true, Force: true}); err != nil {
			return fmt.Errorf("checkout new branch: %w", err)
		}
	} else {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: localBranchRef, Force: true}); err != nil {
			return fmt.Errorf("checkout branch: %w", err)
		}
	}

	if head, err := repository.Head(); err == nil && head.Hash() == remoteRef.Hash() {
		slog.Debug("Asset repository already up to date", logfields.Path(path), logfields.Branch(branch))
		return nil
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return fmt.Errorf("fast-forward reset: %w", err)
	}
	return nil
}

// transient reports whether an error looks like a retryable network problem
// rather than a permanent one (bad ref, missing repo, auth).
func transient(err error) bool {
	l := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "i/o timeout", "connection refused", "connection reset", "temporary", "too many requests"} {
		if strings.Contains(l, marker) {
			return true
		}
	}
	return false
}
