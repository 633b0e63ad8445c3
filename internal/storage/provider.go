// Package storage defines the data-directory file-system abstraction.
package storage

import "time"

// FileInfo is the lightweight metadata returned by List.
type FileInfo struct {
	Path      string
	Checksum  string
	Size      int64
	UpdatedAt time.Time
}

// Provider is the interface for data-directory file operations.
// All paths are relative to the provider root.
type Provider interface {
	// List returns metadata for every file under dir whose name ends with ext.
	// An empty ext matches every file. A missing dir yields an empty list.
	List(dir, ext string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
