package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pdfbuilder/internal/config"
	"git.home.luguber.info/inful/pdfbuilder/internal/task"
)

func TestSyncTasks_OneUnitPerAsset(t *testing.T) {
	cfg := &config.Config{
		Paths: config.PathsConfig{ProjectRoot: t.TempDir()},
		Assets: []config.Asset{
			{Path: "source/figures", Branch: "master", Repository: "https://example.com/figures.git"},
			{Path: "source/tables", Branch: "v1", Repository: "https://example.com/tables.git"},
		},
	}

	group := task.NewGroup("assets")
	SyncTasks(cfg, NewSynchronizer(), group)

	units := group.Units()
	require.Len(t, units, 2)
	require.Equal(t, "sync source/figures", units[0].Name)
	require.Equal(t, "sync source/tables", units[1].Name)
}

func TestCleanTasks_RemovesAssetDirectories(t *testing.T) {
	root := t.TempDir()
	assetDir := filepath.Join(root, "source", "figures")
	require.NoError(t, os.MkdirAll(assetDir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "a.eps"), []byte("eps"), 0o644))

	cfg := &config.Config{
		Paths:  config.PathsConfig{ProjectRoot: root},
		Assets: []config.Asset{{Path: "source/figures", Repository: "https://example.com/figures.git"}},
	}

	group := task.NewGroup("clean")
	CleanTasks(cfg, group)
	units := group.Units()
	require.Len(t, units, 1)

	require.NoError(t, units[0].Job(context.Background()))
	require.NoDirExists(t, assetDir)
}
