package fsutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCopyIfNeeded_CopiesMissingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.pdf")
	dst := filepath.Join(dir, "public", "a.pdf")
	require.NoError(t, os.WriteFile(src, []byte("pdf"), 0o644))

	require.NoError(t, CopyIfNeeded(src, dst, "pdf"))

	out, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "pdf", string(out))
}

func TestCopyIfNeeded_SkipsFreshDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.pdf")
	dst := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("existing"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))

	require.NoError(t, CopyIfNeeded(src, dst, "pdf"))

	out, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "existing", string(out))
}

func TestCopyIfNeeded_ReplacesStaleDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.pdf")
	dst := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(dst, past, past))
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))

	require.NoError(t, CopyIfNeeded(src, dst, "pdf"))

	out, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "new", string(out))
}

func TestCopyIfNeeded_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyIfNeeded(filepath.Join(dir, "absent"), filepath.Join(dir, "dst"), "pdf")
	require.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.tex")

	require.NoError(t, WriteFileAtomic(path, []byte("content"), 0o644))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "content", string(out))

	// No temp files may be left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestCreateLink_CreatesAndReplaces(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "manual-v1.pdf")

	require.NoError(t, CreateLink("manual-v1-release.pdf", link))
	target, err := os.Readlink(link)
	require.NoError(t, err)
	require.Equal(t, "manual-v1-release.pdf", target)

	// Re-linking to a new target replaces the symlink.
	require.NoError(t, CreateLink("manual-v1-main.pdf", link))
	target, err = os.Readlink(link)
	require.NoError(t, err)
	require.Equal(t, "manual-v1-main.pdf", target)
}

func TestCreateLink_RefusesToClobberRegularFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manual-v1.pdf")
	require.NoError(t, os.WriteFile(path, []byte("real file"), 0o644))

	require.Error(t, CreateLink("manual-v1-release.pdf", path))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "real file", string(out))
}

func TestRemoveRecursive(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "assets", "figures")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "f.svg"), []byte("<svg/>"), 0o644))

	require.NoError(t, RemoveRecursive(filepath.Join(dir, "assets")))
	require.NoDirExists(t, filepath.Join(dir, "assets"))

	// Removing a missing path is not an error.
	require.NoError(t, RemoveRecursive(filepath.Join(dir, "assets")))
}
