package build

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_AcquireLock_Creates_Lock_File_And_Parent_Dirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".inkwell", "build.lock")

	lock, err := acquireLock(path, 0)
	require.NoError(t, err)

	t.Cleanup(func() { _ = lock.Close() })

	assert.FileExists(t, path)
}

func Test_AcquireLock_Fails_Fast_When_Lock_Is_Held(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "build.lock")

	held, err := acquireLock(path, 0)
	require.NoError(t, err)

	t.Cleanup(func() { _ = held.Close() })

	_, err = acquireLock(path, 0)
	require.ErrorIs(t, err, ErrLockHeld)
}

func Test_AcquireLock_Times_Out_While_Lock_Is_Held(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "build.lock")

	held, err := acquireLock(path, 0)
	require.NoError(t, err)

	t.Cleanup(func() { _ = held.Close() })

	start := time.Now()

	_, err = acquireLock(path, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrLockHeld)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func Test_AcquireLock_Succeeds_After_Release(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "build.lock")

	first, err := acquireLock(path, 0)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := acquireLock(path, 0)
	require.NoError(t, err)
	require.NoError(t, second.Close())
	require.NoError(t, second.Close(), "Close is idempotent")
}
