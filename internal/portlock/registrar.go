// Package portlock provides cross-process advisory locking for network
// ports. Every process on the host derives the same lock file path for a
// given port, so unrelated sandbox runs serialize on the same file.
package portlock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/AlexKushnir1/near-sandbox-go/internal/sanderr"
)

const lockFilePattern = "near-sandbox-port-%d.lock"

// Registrar maps port numbers to lock files and tracks the locks this
// process holds.
type Registrar struct {
	dir string

	mu   sync.Mutex
	held map[string]*flock.Flock
}

// NewRegistrar creates a Registrar rooted at the system temp directory.
func NewRegistrar() *Registrar {
	return NewRegistrarAt(os.TempDir())
}

// NewRegistrarAt creates a Registrar rooted at dir. Used by tests to keep
// lock files out of the shared temp directory.
func NewRegistrarAt(dir string) *Registrar {
	return &Registrar{
		dir:  dir,
		held: make(map[string]*flock.Flock),
	}
}

// LockFilePath returns the deterministic lock file path for a port.
func (r *Registrar) LockFilePath(port int) string {
	return filepath.Join(r.dir, fmt.Sprintf(lockFilePattern, port))
}

// EnsureLockFile creates the lock file for a port if it does not exist and
// returns its path. An existing file is not an error.
func (r *Registrar) EnsureLockFile(port int) (string, error) {
	path := r.LockFilePath(port)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("create lock file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close lock file %s: %w", path, err)
	}
	return path, nil
}

// Lock acquires an exclusive advisory lock on path. It fails with
// LockFailed when the lock is already held, whether by this process or
// another one.
func (r *Registrar) Lock(path string) error {
	r.mu.Lock()
	if _, ok := r.held[path]; ok {
		r.mu.Unlock()
		return sanderr.New(sanderr.LockFailed, "lock %s is already held by this process", path)
	}
	r.mu.Unlock()

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return sanderr.Wrap(sanderr.LockFailed, err, "lock %s", path)
	}
	if !locked {
		return sanderr.New(sanderr.LockFailed, "lock %s is held by another process", path)
	}

	r.mu.Lock()
	r.held[path] = fl
	r.mu.Unlock()
	return nil
}

// Unlock releases a lock previously acquired with Lock. Releasing a lock
// that is not held is an error and is reported, not swallowed.
func (r *Registrar) Unlock(path string) error {
	r.mu.Lock()
	fl, ok := r.held[path]
	delete(r.held, path)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("unlock %s: lock not held", path)
	}
	if err := fl.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", path, err)
	}
	return nil
}
