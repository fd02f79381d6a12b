// Package storage defines the FileStore interface used to reach model
// artifacts and per-run scratch files. It abstracts the underlying backend so
// that the classifier and label encoder can be served from a local directory
// or from an S3-compatible bucket without changing the loading code.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// The caller must close the returned ReadCloser when done.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing, truncating any existing file.
	// The caller must close the returned WriteCloser to flush data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// ReadAll reads the whole named file from store.
func ReadAll(ctx context.Context, store FileStore, path string) ([]byte, error) {
	r, err := store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Open returns the FileStore described by uri.
//
// Supported forms:
//
//	/abs/dir, ./rel/dir, file:///abs/dir   local directory
//	s3://bucket[/prefix]                   S3 bucket, client built from cfg
func Open(uri string, cfg S3Config) (FileStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("storage: empty store uri")
	}
	if !strings.Contains(uri, "://") {
		return NewLocal(uri)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("storage: parse %q: %w", uri, err)
	}
	switch u.Scheme {
	case "file":
		return NewLocal(u.Path)
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("storage: %q has no bucket", uri)
		}
		return NewS3(NewS3Client(cfg), u.Host, strings.Trim(u.Path, "/")), nil
	default:
		return nil, fmt.Errorf("storage: unsupported scheme %q", u.Scheme)
	}
}
