package io

import (
	"io"
	"os"
	"path/filepath"
)

// FileSystem opens the files named by the operator: assembly sources,
// traces and IO logs.
type FileSystem interface {
	// Open opens a file for reading.
	Open(name string) (file io.ReadCloser, err error)
	// Create creates or truncates a file for writing.
	Create(name string) (file io.WriteCloser, err error)
}

// DirFS is a FileSystem rooted at a host directory. Absolute names are
// used as is.
type DirFS string

var _ FileSystem = DirFS("")

func (dir DirFS) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(string(dir), name)
}

// Open opens a host file for reading.
func (dir DirFS) Open(name string) (file io.ReadCloser, err error) {
	return os.Open(dir.path(name))
}

// Create creates a host file for writing.
func (dir DirFS) Create(name string) (file io.WriteCloser, err error) {
	return os.Create(dir.path(name))
}
