package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// compressionExt returns ".gz", ".zst" or "" for name.
func compressionExt(name string) string {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".gz", ".zst":
		return ext
	}
	return ""
}

// trimCompressionExt strips a trailing .gz or .zst.
func trimCompressionExt(name string) string {
	if ext := compressionExt(name); ext != "" {
		return name[:len(name)-len(ext)]
	}
	return name
}

type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// openInput opens path, transparently decompressing gzip and zstd files.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch compressionExt(path) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close() //nolint:errcheck
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &readCloser{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close() //nolint:errcheck
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return &readCloser{Reader: zr, closers: []func() error{func() error { zr.Close(); return nil }, f.Close}}, nil
	}
	return f, nil
}
