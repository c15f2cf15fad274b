package httpapi

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireLockWritesPIDFile(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir, 47778)
	require.NoError(t, err)
	defer lock.Release()

	require.FileExists(t, filepath.Join(dir, "oracle-http.lock"))
	require.FileExists(t, filepath.Join(dir, "oracle-http.pid"))
}

func TestAcquireLockRejectsSecondHolder(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir, 47778)
	require.NoError(t, err)
	defer lock.Release()

	_, err = AcquireLock(dir, 47778)
	require.Error(t, err)
}

func TestReleaseRemovesLockFiles(t *testing.T) {
	dir := t.TempDir()
	lock, err := AcquireLock(dir, 47778)
	require.NoError(t, err)

	lock.Release()
	require.NoFileExists(t, filepath.Join(dir, "oracle-http.lock"))
	require.NoFileExists(t, filepath.Join(dir, "oracle-http.pid"))

	// A second acquire should succeed now that the lock is released.
	lock2, err := AcquireLock(dir, 47778)
	require.NoError(t, err)
	lock2.Release()
}
