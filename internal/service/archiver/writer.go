package archiver

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/oshokin/release-packager/internal/domain/release"
)

// entryWriter appends entries to one archive container.
type entryWriter interface {
	Add(entry Entry, name string) error
	Close() error
}

var errUnknownFormat = errors.New("unknown archive format")

func newEntryWriter(format release.Format, w io.Writer) (entryWriter, error) {
	switch format {
	case release.FormatTGZ:
		gz := gzip.NewWriter(w)

		return &tgzWriter{gz: gz, tw: tar.NewWriter(gz)}, nil
	case release.FormatZIP:
		return &zipWriter{zw: zip.NewWriter(w)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

type tgzWriter struct {
	gz *gzip.Writer
	tw *tar.Writer
}

func (w *tgzWriter) Add(entry Entry, name string) error {
	header, err := tar.FileInfoHeader(entry.Info, "")
	if err != nil {
		return err
	}

	header.Name = name

	if err = w.tw.WriteHeader(header); err != nil {
		return err
	}

	return copyFile(w.tw, entry.Path)
}

func (w *tgzWriter) Close() error {
	if err := w.tw.Close(); err != nil {
		_ = w.gz.Close()
		return err
	}

	return w.gz.Close()
}

type zipWriter struct {
	zw *zip.Writer
}

func (w *zipWriter) Add(entry Entry, name string) error {
	header, err := zip.FileInfoHeader(entry.Info)
	if err != nil {
		return err
	}

	header.Name = name
	header.Method = zip.Deflate

	dst, err := w.zw.CreateHeader(header)
	if err != nil {
		return err
	}

	return copyFile(dst, entry.Path)
}

func (w *zipWriter) Close() error {
	return w.zw.Close()
}

func copyFile(dst io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}

	defer func() {
		_ = src.Close()
	}()

	_, err = io.Copy(dst, src)

	return err
}
