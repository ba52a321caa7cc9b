// Package archive writes deflate-compressed zip bundles.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// ErrArchive is returned when writing or finalizing the zip stream fails.
var ErrArchive = errors.New("archive write fault")

// Builder streams file contents into a zip archive.
//
// Entries are written in the order Append is called, which for concurrent
// fetches is completion order, not request order. The zip format does not
// care. Builder is not safe for concurrent use; callers serialize Append.
type Builder struct {
	zw *zip.Writer
}

// NewBuilder creates a Builder writing the archive to w.
//
// Entries are compressed with deflate at the maximum compression level.
func NewBuilder(w io.Writer) *Builder {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	return &Builder{zw: zw}
}

// Append adds one entry named exactly name, copying its content from r.
//
// The name is preserved verbatim, including any path separators, as the
// entry's path inside the archive.
func (b *Builder) Append(name string, r io.Reader) error {
	w, err := b.zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return fmt.Errorf("%w: entry %s: %v", ErrArchive, name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("%w: entry %s: %v", ErrArchive, name, err)
	}
	return nil
}

// Close flushes pending data and writes the central directory.
//
// It must be called only after every entry has been fully appended.
func (b *Builder) Close() error {
	if err := b.zw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return nil
}
