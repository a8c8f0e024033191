package manifest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/release-packager/internal/domain/release"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "package.json"))
	doc, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, doc)
}

// TestFileRepository_InvalidManifest rejects unparseable content.
func TestFileRepository_InvalidManifest(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileRepository(path).Load(context.Background())
	require.Error(t, err)
}

// TestFileRepository_SaveLoad_Roundtrip patches on disk and reads the result back.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "package.json")
	require.NoError(t, os.WriteFile(path, []byte(packageJSON), 0o640))

	repo := NewFileRepository(path)
	ctx := context.Background()

	doc, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, Patch(doc, release.Selectors{OS: "win32", Platform: "x64"}))
	require.NoError(t, repo.Save(ctx, doc))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)

	osList, _ := loaded.OS()
	require.Equal(t, []string{"win32"}, osList)

	cpu, _ := loaded.CPU()
	require.Equal(t, []string{"x64"}, cpu)

	constraint, _ := loaded.RuntimeConstraint()
	require.Equal(t, "18 - 22", constraint)

	// No temporary files left next to the manifest.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	if runtime.GOOS != "windows" {
		info, statErr := os.Stat(path)
		require.NoError(t, statErr)
		require.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	}
}
