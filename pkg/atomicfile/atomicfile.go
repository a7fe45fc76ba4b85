// Package atomicfile writes report and SBOM output files without ever
// leaving a partially-written file at the destination path.
package atomicfile

import (
	"os"
	"path/filepath"
)

// File wraps an *os.File created alongside its eventual destination. Close
// renames it into place; Discard removes it instead, for error paths.
type File struct {
	*os.File
	dest string
	done bool
}

// New creates a temporary file in the same directory as dest so the final
// rename is on the same filesystem, and therefore atomic.
func New(dest string) (*File, error) {
	dir := filepath.Dir(dest)
	f, err := os.CreateTemp(dir, ".rtx-"+filepath.Base(dest)+"-*")
	if err != nil {
		return nil, err
	}
	return &File{File: f, dest: dest}, nil
}

// Close flushes and renames the temp file onto dest. Calling it twice, or
// calling it after Discard, is a no-op.
func (f *File) Close() error {
	if f.done {
		return nil
	}
	f.done = true
	if err := f.File.Close(); err != nil {
		os.Remove(f.File.Name())
		return err
	}
	return os.Rename(f.File.Name(), f.dest)
}

// Discard closes and removes the temp file without renaming it into place.
// Safe to call after a write error; a no-op if Close already ran.
func (f *File) Discard() error {
	if f.done {
		return nil
	}
	f.done = true
	f.File.Close()
	return os.Remove(f.File.Name())
}
