// Package store implements the session layer: lifecycle, stage path
// resolution, join-node materialization, and artifact I/O. It is the
// only package that knows how a session is laid out inside a
// storage.Backend.
package store

import (
	"github.com/argus-sh/argus/internal/fingerprint"
	"github.com/argus-sh/argus/internal/storage"
)

// Store is the session layer over a single storage.Backend. One Store
// typically serves every session under a given sessionsRoot.
type Store struct {
	backend     storage.Backend
	hasher      fingerprint.Hasher
	index       sessionIndex
	lockFactory LockFactory
}

// Option configures a Store at construction.
type Option func(*Store)

// WithHasher overrides the default fingerprint.SHA256Hasher.
func WithHasher(h fingerprint.Hasher) Option {
	return func(s *Store) { s.hasher = h }
}

// WithIndex wires a session side-index (see index.go for the SQLite
// implementation). Absent an index, sessionsList falls back to a full
// rescan of the backend.
func WithIndex(idx sessionIndex) Option {
	return func(s *Store) { s.index = idx }
}

// WithLockFactory overrides how Store acquires the per-session
// single-writer guard (see lock.go). Defaults to an in-process mutex
// table, which is correct for storage.Memory and for single-process FS
// use; a real multi-process deployment over storage.FS should pass
// NewFileLockFactory.
func WithLockFactory(f LockFactory) Option {
	return func(s *Store) { s.lockFactory = f }
}

// Backend exposes the underlying storage.Backend, for callers (such
// as plugin handlers) that need to read/write within a stage's own
// data directory.
func (s *Store) Backend() storage.Backend { return s.backend }

// New constructs a Store over backend.
func New(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		hasher:      fingerprint.SHA256Hasher{},
		lockFactory: NewProcessLockFactory(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
