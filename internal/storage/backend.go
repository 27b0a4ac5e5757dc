// Package storage implements the byte-addressable tree backend the
// engine materializes sessions and artifacts onto.
package storage

import "errors"

// Sentinel errors returned by Backend implementations. Callers should
// use errors.Is against these rather than matching strings.
var (
	// ErrNotFound is returned by Read or ListChildren when the path
	// does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrNotDirectory is returned when an operation expecting a
	// directory is given a path to a file.
	ErrNotDirectory = errors.New("storage: not a directory")
	// ErrNotFile is returned when an operation expecting a file is
	// given a path to a directory.
	ErrNotFile = errors.New("storage: not a file")
)

// Backend is the polymorphic byte-addressable tree. Every write is
// atomic per path: a successful Write fully replaces any prior content
// at that path, and a failed Write leaves the prior content (or
// absence) untouched.
type Backend interface {
	// Write stores bytes at path, creating parent directories as
	// needed.
	Write(path string, data []byte) error
	// Read returns the bytes stored at path, or ErrNotFound.
	Read(path string) ([]byte, error)
	// Exists reports whether path refers to an existing file or
	// directory.
	Exists(path string) bool
	// ListChildren returns the names of entries directly under path.
	// Returns ErrNotFound if path does not exist, ErrNotDirectory if
	// path is a file.
	ListChildren(path string) ([]string, error)
	// MakeDir creates path and any missing parents as directories. It
	// is not an error for path to already exist as a directory.
	MakeDir(path string) error
	// Link establishes a reference at source that points at target.
	// Readers must dereference explicitly via ReadLink; Link
	// does not make source readable as if it were target's content.
	Link(source, target string) error
	// ReadLink returns the target a Link call recorded at source, and
	// ok=false if source is not a link.
	ReadLink(source string) (target string, ok bool, err error)
}
