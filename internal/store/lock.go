package store

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/nightlyone/lockfile"
)

// ErrSessionBusy is returned by Store.Lock when another dispatch
// already holds the single-writer guard for a session: a second
// command issued to the same session before the first returns is a
// protocol violation for the caller.
var ErrSessionBusy = errors.New("store: session is locked by another dispatch")

const (
	lockRetryAttempts = 3
	lockRetryDelay    = 100 * time.Millisecond
)

// Lock is a held single-writer guard. Callers must Unlock it when a
// dispatch completes, success or failure.
type Lock interface {
	Unlock() error
}

// LockFactory acquires the per-session dispatch lock named by
// Store.Lock.
type LockFactory interface {
	TryLock(sessionID string) (Lock, error)
}

// Lock acquires the single-writer guard for sessionID, held for the
// duration of one command dispatch. It returns ErrSessionBusy if
// another dispatch already holds it.
func (st *Store) Lock(sessionID string) (Lock, error) {
	return st.lockFactory.TryLock(sessionID)
}

// processLockFactory guards sessions with in-process mutexes. Correct
// for storage.Memory (always single-process) and for a single-process
// deployment over storage.FS; it does not protect against a second OS
// process touching the same session tree.
type processLockFactory struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewProcessLockFactory returns the default in-process LockFactory.
func NewProcessLockFactory() LockFactory {
	return &processLockFactory{held: map[string]bool{}}
}

type processLock struct {
	f  *processLockFactory
	id string
}

func (f *processLockFactory) TryLock(sessionID string) (Lock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[sessionID] {
		return nil, ErrSessionBusy
	}
	f.held[sessionID] = true
	return &processLock{f: f, id: sessionID}, nil
}

func (l *processLock) Unlock() error {
	l.f.mu.Lock()
	defer l.f.mu.Unlock()
	delete(l.f.held, l.id)
	return nil
}

// fileLockFactory guards sessions with a real OS-level lockfile
// (<dir>/<sessionID>.lock), so concurrent processes touching the same
// storage.FS root fail fast rather than corrupting a session tree.
type fileLockFactory struct {
	dir string
}

// NewFileLockFactory returns a LockFactory appropriate for a
// multi-process deployment over storage.FS, rooted at dir (typically
// the same root FS was constructed with).
func NewFileLockFactory(dir string) LockFactory {
	return &fileLockFactory{dir: dir}
}

type fileLock struct {
	lock lockfile.Lockfile
}

func (f *fileLockFactory) TryLock(sessionID string) (Lock, error) {
	lock, err := lockfile.New(filepath.Join(f.dir, sessionID+".lock"))
	if err != nil {
		return nil, err
	}

	var lastErr error
	for range lockRetryAttempts {
		lastErr = lock.TryLock()
		if lastErr == nil {
			return &fileLock{lock: lock}, nil
		}
		if lastErr == lockfile.ErrBusy {
			return nil, ErrSessionBusy
		}
		if te, ok := lastErr.(interface{ Temporary() bool }); ok && te.Temporary() {
			time.Sleep(lockRetryDelay)
			continue
		}
		return nil, lastErr
	}
	return nil, lastErr
}

func (l *fileLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil && err != lockfile.ErrRogueDeletion {
		return err
	}
	return nil
}
