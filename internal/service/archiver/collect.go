package archiver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oshokin/release-packager/internal/domain/release"
	"github.com/oshokin/release-packager/internal/logger"
)

// Entry is a regular file selected for the archive.
type Entry struct {
	// Rel is the slash-separated path relative to the project directory.
	Rel string
	// Path is the location on disk.
	Path string
	// Info describes the file content that will be archived (symlinks resolved).
	Info fs.FileInfo
}

// Collect expands the inclusion set against projectDir.
// The result holds every regular file matched by an inclusion pattern and by
// no exclusion pattern, sorted by Rel. Patterns that match nothing are fine.
func Collect(ctx context.Context, projectDir string, set release.InclusionSet) ([]Entry, error) {
	fsys := os.DirFS(projectDir)
	matched := make(map[string]struct{}, defaultCapacity)

	for _, pattern := range set.Inclusions() {
		found, err := doublestar.Glob(fsys, pattern, doublestar.WithFailOnIOErrors())
		if err != nil {
			return nil, fmt.Errorf("expand pattern %q: %w", pattern, err)
		}

		if len(found) == 0 {
			logger.DebugKV(ctx, "Pattern matched nothing", "pattern", pattern)
		}

		for _, rel := range found {
			if set.Excluded(rel) {
				continue
			}

			matched[rel] = struct{}{}
		}
	}

	rels := make([]string, 0, len(matched))
	for rel := range matched {
		rels = append(rels, rel)
	}

	sort.Strings(rels)

	entries := make([]Entry, 0, len(rels))

	for _, rel := range rels {
		path := filepath.Join(projectDir, filepath.FromSlash(rel))

		info, err := regularFileInfo(path)
		if errors.Is(err, errNotRegular) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", rel, err)
		}

		entries = append(entries, Entry{Rel: rel, Path: path, Info: info})
	}

	return entries, nil
}

// errNotRegular marks directories, devices and dangling links, which are not archived.
var errNotRegular = errors.New("not a regular file")

// regularFileInfo resolves symlinks and reports errNotRegular for anything
// that does not end in a regular file.
func regularFileInfo(path string) (fs.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		info, err = os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errNotRegular
		}

		if err != nil {
			return nil, err
		}
	}

	if !info.Mode().IsRegular() {
		return nil, errNotRegular
	}

	return info, nil
}
