package checksum

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/oshokin/release-packager/internal/logger"

	// Register SHA-384 and SHA-512 for the selectable algorithms.
	_ "crypto/sha512"
)

const (
	// Suffix is appended to an artifact name to form its digest file name.
	Suffix = ".digest"

	// DefaultAlgorithm hashes artifacts when none is configured.
	DefaultAlgorithm = digest.SHA256

	// digestFileMode is applied to written digest files.
	digestFileMode os.FileMode = 0o644

	// parentSegment in a file name is never hashed.
	parentSegment = ".."
)

var errAlgorithmUnavailable = errors.New("digest algorithm unavailable")

// Record is the digest of one artifact.
type Record struct {
	// Path is the hashed artifact.
	Path string
	// DigestPath is the written digest file.
	DigestPath string
	// Digest is the algorithm-qualified content digest.
	Digest digest.Digest
}

// Generator hashes artifacts with a single algorithm.
type Generator struct {
	algorithm digest.Algorithm
}

// ParseAlgorithm validates a configured algorithm name. Empty means DefaultAlgorithm.
func ParseAlgorithm(name string) (digest.Algorithm, error) {
	if name == "" {
		return DefaultAlgorithm, nil
	}

	algorithm := digest.Algorithm(strings.ToLower(name))
	if !algorithm.Available() {
		return "", fmt.Errorf("%w: %s", errAlgorithmUnavailable, name)
	}

	return algorithm, nil
}

// NewGenerator creates a generator for algorithm.
func NewGenerator(algorithm digest.Algorithm) (*Generator, error) {
	if !algorithm.Available() {
		return nil, fmt.Errorf("%w: %s", errAlgorithmUnavailable, algorithm)
	}

	return &Generator{algorithm: algorithm}, nil
}

// Algorithm returns the algorithm used by the generator.
func (g *Generator) Algorithm() digest.Algorithm {
	return g.algorithm
}

// ChecksumAll hashes every regular file directly inside outputDir and writes
// the lowercase hex digest, without a trailing newline, to {name}.digest.
// The directory listing is taken once before hashing starts, so digest files
// written by this call are not hashed again. Files whose name contains ".."
// are skipped. Existing digest files are overwritten; nothing is deleted.
func (g *Generator) ChecksumAll(ctx context.Context, outputDir string) ([]Record, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", outputDir, err)
	}

	records := make([]Record, 0, len(entries))

	for _, entry := range entries {
		if err = ctx.Err(); err != nil {
			return records, err
		}

		name := entry.Name()
		if strings.Contains(name, parentSegment) {
			logger.WarnKV(ctx, "Skipping file with a suspicious name", "file", name)
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}

		var record Record

		record, err = g.checksumFile(filepath.Join(outputDir, name))
		if err != nil {
			return records, err
		}

		logger.InfoKV(ctx, "Checksum written",
			"file", record.DigestPath, "digest", record.Digest.Encoded())

		records = append(records, record)
	}

	return records, nil
}

// Verify recomputes the digest of path and compares it with its digest file.
func (g *Generator) Verify(path string) (bool, error) {
	expected, err := os.ReadFile(path + Suffix)
	if err != nil {
		return false, fmt.Errorf("read digest of %s: %w", path, err)
	}

	actual, err := g.digestOf(path)
	if err != nil {
		return false, err
	}

	return actual.Encoded() == string(expected), nil
}

func (g *Generator) checksumFile(path string) (Record, error) {
	dgst, err := g.digestOf(path)
	if err != nil {
		return Record{}, err
	}

	digestPath := path + Suffix
	if err = os.WriteFile(digestPath, []byte(dgst.Encoded()), digestFileMode); err != nil {
		return Record{}, fmt.Errorf("write digest of %s: %w", path, err)
	}

	return Record{Path: path, DigestPath: digestPath, Digest: dgst}, nil
}

func (g *Generator) digestOf(path string) (digest.Digest, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	dgst, err := g.algorithm.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return dgst, nil
}
