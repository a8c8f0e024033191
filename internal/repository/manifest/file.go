package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// defaultFileMode is used when the manifest mode cannot be determined.
const defaultFileMode fs.FileMode = 0o644

// ErrNotFound is returned when the manifest file does not exist.
var ErrNotFound = errors.New("manifest not found")

// Repository defines persistence operations for the manifest.
type Repository interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// FileRepository stores the manifest in a single file.
type FileRepository struct {
	// path is the location of the manifest file.
	path string
	// mu serializes reads and writes of the file within the process.
	mu sync.Mutex
}

// NewFileRepository creates a repository for the manifest at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the manifest location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads, parses and validates the manifest.
func (r *FileRepository) Load(_ context.Context) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, r.path)
		}

		return nil, fmt.Errorf("read manifest: %w", err)
	}

	doc, err := Parse(contents, EncodingFor(r.path))
	if err != nil {
		return nil, err
	}

	if err = doc.Validate(); err != nil {
		return nil, err
	}

	return doc, nil
}

// Save replaces the manifest with doc. The document is fully encoded before
// anything is written, and the new content lands in a temporary sibling that
// is renamed over the original, so readers see either the old or the new file.
func (r *FileRepository) Save(_ context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := doc.Encode()
	if err != nil {
		return err
	}

	mode := defaultFileMode
	if info, statErr := os.Stat(r.path); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary manifest: %w", err)
	}

	tmpName := tmp.Name()

	if err = writeAndClose(tmp, data, mode); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write manifest: %w", err)
	}

	if err = os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace manifest: %w", err)
	}

	return nil
}

func writeAndClose(f *os.File, data []byte, mode fs.FileMode) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
