package portlock

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexKushnir1/near-sandbox-go/internal/sanderr"
)

func TestLockFilePath_Deterministic(t *testing.T) {
	a := NewRegistrarAt("/tmp")
	b := NewRegistrarAt("/tmp")
	assert.Equal(t, a.LockFilePath(3030), b.LockFilePath(3030))
	assert.NotEqual(t, a.LockFilePath(3030), a.LockFilePath(3031))
}

func TestEnsureLockFile_Idempotent(t *testing.T) {
	r := NewRegistrarAt(t.TempDir())

	path, err := r.EnsureLockFile(3030)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	// Creating again is not an error and returns the same path.
	again, err := r.EnsureLockFile(3030)
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestLockUnlock(t *testing.T) {
	r := NewRegistrarAt(t.TempDir())
	path, err := r.EnsureLockFile(3030)
	require.NoError(t, err)

	require.NoError(t, r.Lock(path))
	require.NoError(t, r.Unlock(path))

	// Released locks can be taken again.
	require.NoError(t, r.Lock(path))
	require.NoError(t, r.Unlock(path))
}

func TestLock_AlreadyHeld(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistrarAt(dir)
	path, err := r.EnsureLockFile(3030)
	require.NoError(t, err)
	require.NoError(t, r.Lock(path))
	defer func() { _ = r.Unlock(path) }()

	err = r.Lock(path)
	require.Error(t, err)
	assert.Equal(t, sanderr.LockFailed, sanderr.KindOf(err))

	// A second registrar contending on the same file fails the same way.
	other := NewRegistrarAt(dir)
	err = other.Lock(path)
	require.Error(t, err)
	assert.Equal(t, sanderr.LockFailed, sanderr.KindOf(err))
}

func TestUnlock_NotHeld(t *testing.T) {
	r := NewRegistrarAt(t.TempDir())
	path, err := r.EnsureLockFile(3030)
	require.NoError(t, err)

	err = r.Unlock(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock not held")
}
