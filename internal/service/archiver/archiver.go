package archiver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/release-packager/internal/domain/release"
	"github.com/oshokin/release-packager/internal/logger"
)

const (
	// defaultCapacity is the initial capacity for match sets.
	defaultCapacity = 256

	// distDirMode is used when the distribution directory has to be created.
	distDirMode os.FileMode = 0o755
	// archiveFileMode is applied to finished archives.
	archiveFileMode os.FileMode = 0o644
)

// Report summarizes a written archive.
type Report struct {
	// Path is where the archive was written.
	Path string
	// Format is the container format.
	Format release.Format
	// Files is the number of archived files.
	Files int
	// Bytes is the total uncompressed size of archived files.
	Bytes int64
}

// Build writes every entry of set found in projectDir into desc.Path.
// On failure nothing is left at desc.Path and the temporary file is removed.
func Build(ctx context.Context, projectDir string, set release.InclusionSet, desc release.Descriptor) (*Report, error) {
	entries, err := Collect(ctx, projectDir, set)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Collected files for the archive", "files", len(entries), "root", set.Root)

	distDir := filepath.Dir(desc.Path)
	if err = os.MkdirAll(distDir, distDirMode); err != nil {
		return nil, fmt.Errorf("create distribution directory: %w", err)
	}

	tmp, err := os.CreateTemp(distDir, "."+desc.FileName+".*.partial")
	if err != nil {
		return nil, fmt.Errorf("create temporary archive: %w", err)
	}

	tmpName := tmp.Name()

	report, err := writeArchive(ctx, tmp, entries, set, desc)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close archive: %w", closeErr)
	}

	if err == nil {
		err = os.Chmod(tmpName, archiveFileMode)
	}

	if err == nil {
		err = os.Rename(tmpName, desc.Path)
	}

	if err != nil {
		_ = os.Remove(tmpName)
		return nil, err
	}

	return report, nil
}

func writeArchive(
	ctx context.Context,
	dst *os.File,
	entries []Entry,
	set release.InclusionSet,
	desc release.Descriptor,
) (*Report, error) {
	w, err := newEntryWriter(desc.Format, dst)
	if err != nil {
		return nil, err
	}

	report := &Report{Path: desc.Path, Format: desc.Format}

	for _, entry := range entries {
		if err = ctx.Err(); err != nil {
			_ = w.Close()
			return nil, err
		}

		if err = w.Add(entry, set.ArchivePath(entry.Rel)); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("add %s: %w", entry.Rel, err)
		}

		report.Files++
		report.Bytes += entry.Info.Size()
	}

	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}

	return report, nil
}
