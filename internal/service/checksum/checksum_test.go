package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func newSHA256(t *testing.T) *Generator {
	t.Helper()

	g, err := NewGenerator(DefaultAlgorithm)
	require.NoError(t, err)

	return g
}

// TestChecksumAll writes one lowercase hex digest per file.
func TestChecksumAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := writeFile(t, dir, "app-1.2.3.zip", "archive bytes")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	records, err := newSHA256(t).ChecksumAll(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, records, 1)

	sum := sha256.Sum256([]byte("archive bytes"))
	want := hex.EncodeToString(sum[:])

	got, err := os.ReadFile(archive + Suffix)
	require.NoError(t, err)
	require.Equal(t, want, string(got))
	require.Equal(t, archive, records[0].Path)
	require.Equal(t, digest.NewDigestFromEncoded(digest.SHA256, want), records[0].Digest)

	// Directories are never hashed.
	_, err = os.Stat(filepath.Join(dir, "nested"+Suffix))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestChecksumAll_Idempotent produces identical digest files on a rerun over the same artifacts.
func TestChecksumAll_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := writeFile(t, dir, "app-1.2.3.tgz", "tarball")
	g := newSHA256(t)

	_, err := g.ChecksumAll(context.Background(), dir)
	require.NoError(t, err)

	first, err := os.ReadFile(archive + Suffix)
	require.NoError(t, err)

	records, err := g.ChecksumAll(context.Background(), dir)
	require.NoError(t, err)

	second, err := os.ReadFile(archive + Suffix)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// The digest file from the first run is an artifact of the second one.
	require.Len(t, records, 2)

	ok, err := g.Verify(archive)
	require.NoError(t, err)
	require.True(t, ok)
}

// TestChecksumAll_SkipsParentSegment never hashes names containing "..".
func TestChecksumAll_SkipsParentSegment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "evil..zip", "x")
	writeFile(t, dir, "ok.zip", "y")

	records, err := newSHA256(t).ChecksumAll(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, filepath.Join(dir, "ok.zip"), records[0].Path)

	_, err = os.Stat(filepath.Join(dir, "evil..zip"+Suffix))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestChecksumAll_MissingDirectory fails when the directory cannot be listed.
func TestChecksumAll_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := newSHA256(t).ChecksumAll(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestVerify_DetectsTampering reports a mismatch after the artifact changes.
func TestVerify_DetectsTampering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := writeFile(t, dir, "app.zip", "original")
	g := newSHA256(t)

	_, err := g.ChecksumAll(context.Background(), dir)
	require.NoError(t, err)

	writeFile(t, dir, "app.zip", "tampered")

	ok, err := g.Verify(archive)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestParseAlgorithm accepts go-digest algorithms and rejects unknown names.
func TestParseAlgorithm(t *testing.T) {
	t.Parallel()

	algorithm, err := ParseAlgorithm("")
	require.NoError(t, err)
	require.Equal(t, digest.SHA256, algorithm)

	algorithm, err = ParseAlgorithm("SHA512")
	require.NoError(t, err)
	require.Equal(t, digest.SHA512, algorithm)

	_, err = ParseAlgorithm("md5")
	require.ErrorIs(t, err, errAlgorithmUnavailable)

	_, err = NewGenerator(digest.Algorithm("crc32"))
	require.ErrorIs(t, err, errAlgorithmUnavailable)
}
