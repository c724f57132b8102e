package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pdfbuilder/internal/retry"
)

// setupRemoteRepo initializes a git repository on disk that clones can use as
// a remote, with one committed file on master.
func setupRemoteRepo(t *testing.T) (string, *git.Worktree) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("master")},
	})
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	commitFile(t, wt, dir, "figure.svg", "<svg/>")
	return dir, wt
}

func commitFile(t *testing.T, wt *git.Worktree, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	_, err := wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestSync_ClonesWhenPathAbsent(t *testing.T) {
	remote, _ := setupRemoteRepo(t)
	local := filepath.Join(t.TempDir(), "assets", "figures")

	s := NewSynchronizer()
	require.NoError(t, s.Sync(context.Background(), local, "master", remote))
	require.FileExists(t, filepath.Join(local, "figure.svg"))
}

func TestSync_UpdatesWhenPathPresent(t *testing.T) {
	remote, wt := setupRemoteRepo(t)
	local := filepath.Join(t.TempDir(), "figures")

	s := NewSynchronizer()
	require.NoError(t, s.Sync(context.Background(), local, "master", remote))

	// Remote advances; a second sync must pick the new file up.
	commitFile(t, wt, remote, "diagram.svg", "<svg/>")
	require.NoError(t, s.Sync(context.Background(), local, "master", remote))
	require.FileExists(t, filepath.Join(local, "diagram.svg"))
}

func TestSync_IdempotentOnUnchangedRemote(t *testing.T) {
	remote, _ := setupRemoteRepo(t)
	local := filepath.Join(t.TempDir(), "figures")

	s := NewSynchronizer()
	require.NoError(t, s.Sync(context.Background(), local, "master", remote))

	before, err := os.ReadFile(filepath.Join(local, "figure.svg"))
	require.NoError(t, err)

	require.NoError(t, s.Sync(context.Background(), local, "master", remote))

	after, err := os.ReadFile(filepath.Join(local, "figure.svg"))
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestSync_CloneFailureNamesRemote(t *testing.T) {
	local := filepath.Join(t.TempDir(), "figures")

	s := NewSynchronizer()
	err := s.Sync(context.Background(), local, "master", "/nonexistent/remote.git")
	require.Error(t, err)

	var serr *SyncError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, "clone", serr.Op)
	require.Equal(t, "/nonexistent/remote.git", serr.Remote)
}

func TestSync_UpdateFailureNamesPath(t *testing.T) {
	// An existing directory that is not a repository cannot be updated.
	local := t.TempDir()

	s := NewSynchronizer()
	err := s.Sync(context.Background(), local, "master", "ignored")
	require.Error(t, err)

	var serr *SyncError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, "update", serr.Op)
	require.Equal(t, local, serr.Path)
}

func TestSync_CanceledRetryOfPendingCloneNamesClone(t *testing.T) {
	local := filepath.Join(t.TempDir(), "figures")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// A refused connection is transient, so the synchronizer waits to retry;
	// the context expires during that wait. Nothing was cloned yet, so the
	// error must name the clone, not an update.
	s := NewSynchronizer().WithPolicy(retry.Policy{
		Mode: retry.BackoffFixed, Initial: time.Minute, Max: time.Minute, MaxRetries: 2,
	})
	err := s.Sync(ctx, local, "master", "http://127.0.0.1:1/figures.git")
	require.Error(t, err)

	var serr *SyncError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, "clone", serr.Op)
	require.Equal(t, local, serr.Path)
}

func TestOpFor(t *testing.T) {
	dir := t.TempDir()
	require.Equal(t, "update", opFor(dir))
	require.Equal(t, "clone", opFor(filepath.Join(dir, "absent")))
}

func TestTransient_Classification(t *testing.T) {
	require.True(t, transient(errContaining("dial tcp: i/o timeout")))
	require.True(t, transient(errContaining("connection refused")))
	require.False(t, transient(errContaining("repository not found")))
	require.False(t, transient(errContaining("authentication required")))
}

type errContaining string

func (e errContaining) Error() string { return string(e) }
