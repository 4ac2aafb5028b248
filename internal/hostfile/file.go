// Package hostfile implements fsnode.INode over the host filesystem: a
// real disk-backed filesystem lives outside this package's reach, so
// this package exists only to give the swap store, the syscall table,
// and cmd/mkdiskimg something real to read and write through during
// development and tests, in the idiom of biscuit's fs.Blockmem_i /
// fs.Disk_i split between capability and backing storage.
package hostfile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rcore-os/rCore-Tutorial/internal/fsnode"
)

// File wraps an *os.File as an fsnode.INode. It has no children, so
// Lookup/Find resolve names against the directory the file sits in.
type File struct {
	path string
	f    *os.File
}

// Create makes a new file of the given size (zero-filled) at path and
// returns it opened for reading and writing.
func Create(path string, size int64) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, err
	}
	return &File{path: path, f: f}, nil
}

// Open opens an existing file at path for reading and writing.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &File{path: path, f: f}, nil
}

// ReadAt reads len(p) bytes starting at offset.
func (fl *File) ReadAt(offset int64, p []byte) (int, error) {
	n, err := fl.f.ReadAt(p, offset)
	if err == io.EOF && n == len(p) {
		err = nil
	}
	return n, err
}

// WriteAt writes p at offset.
func (fl *File) WriteAt(offset int64, p []byte) (int, error) {
	return fl.f.WriteAt(p, offset)
}

// Lookup resolves a slash-separated path relative to this file's
// directory. This host shim only supports the single-level layout
// cmd/mkdiskimg produces (a flat directory of named files at the FS
// root), matching the INode surface the kernel core actually consumes.
func (fl *File) Lookup(path string) (fsnode.INode, error) {
	return fl.Find(path)
}

// Find opens the sibling file named name.
func (fl *File) Find(name string) (fsnode.INode, error) {
	return Open(filepath.Join(filepath.Dir(fl.path), name))
}

// ReadAll reads the entire file.
func (fl *File) ReadAll() ([]byte, error) {
	if _, err := fl.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(fl.f)
}

// Close releases the underlying os.File.
func (fl *File) Close() error { return fl.f.Close() }
