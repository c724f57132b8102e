// Package fsutil provides the narrow filesystem operations the build pipeline
// depends on: conditional copies, symlink creation, and recursive removal.
package fsutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/pdfbuilder/internal/logfields"
)

// CopyIfNeeded copies src to dst only when dst is missing or older than src.
// kind is a short label used for logging (e.g. "pdf").
func CopyIfNeeded(src, dst, kind string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("copy %s: source %s: %w", kind, src, err)
	}
	if dstInfo, err := os.Stat(dst); err == nil {
		if !dstInfo.ModTime().Before(srcInfo.ModTime()) {
			slog.Debug("Destination up to date, skipping copy", logfields.Path(dst), slog.String("kind", kind))
			return nil
		}
	}
	if err := CopyAlways(src, dst); err != nil {
		return fmt.Errorf("copy %s: %w", kind, err)
	}
	slog.Debug("Copied file", slog.String("from", src), slog.String("to", dst), slog.String("kind", kind))
	return nil
}

// CopyAlways copies src to dst unconditionally, creating parent directories.
// The write goes through a temp file in dst's directory so dst is never
// observed half-written.
func CopyAlways(src, dst string) error {
	// #nosec G304 - paths come from validated build configuration
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// WriteFileAtomic writes data to path through a temp file and rename, so the
// destination is never observed half-written.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if perm != 0 {
		if err := os.Chmod(tmp.Name(), perm); err != nil {
			return err
		}
	}
	return os.Rename(tmp.Name(), path)
}

// CreateLink creates a symlink at linkPath pointing at target, replacing an
// existing symlink. A regular file at linkPath is never clobbered.
func CreateLink(target, linkPath string) error {
	if info, err := os.Lstat(linkPath); err == nil {
		if info.Mode()&os.ModeSymlink == 0 {
			return fmt.Errorf("create link %s: refusing to replace non-symlink", linkPath)
		}
		if err := os.Remove(linkPath); err != nil {
			return fmt.Errorf("create link %s: %w", linkPath, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(linkPath), 0o750); err != nil {
		return err
	}
	if err := os.Symlink(target, linkPath); err != nil {
		return fmt.Errorf("create link %s -> %s: %w", linkPath, target, err)
	}
	slog.Debug("Created symlink", logfields.Path(linkPath), slog.String("target", target))
	return nil
}

// RemoveRecursive removes path and everything under it. Missing paths are not
// an error.
func RemoveRecursive(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	slog.Debug("Removed path", logfields.Path(path))
	return nil
}
