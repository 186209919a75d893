package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// ErrLockHeld is returned when the build lock is held by another process and
// the acquisition timeout expires.
var ErrLockHeld = errors.New("build lock held by another process")

// buildLock serializes builds against the same content root. flock(2) is
// advisory and applies to an inode, so the lock file must be stable on disk:
// it is created once and never unlinked or replaced.
type buildLock struct {
	file *os.File
}

// acquireLock takes an exclusive flock on path, polling with backoff until
// timeout expires. timeout <= 0 means a single non-blocking attempt.
func acquireLock(path string, timeout time.Duration) (*buildLock, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, fmt.Errorf("creating lock dir: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) //nolint:gosec // lock file under the content root
	if err != nil {
		return nil, fmt.Errorf("opening lockfile: %w", err)
	}

	deadline := time.Now().Add(timeout)
	backoff := time.Millisecond

	for {
		err = flockRetryEINTR(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &buildLock{file: file}, nil
		}

		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EAGAIN) {
			_ = file.Close()

			return nil, fmt.Errorf("flock: %w", err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			_ = file.Close()

			if timeout <= 0 {
				return nil, ErrLockHeld
			}

			return nil, fmt.Errorf("%w: timed out after %s", ErrLockHeld, timeout)
		}

		time.Sleep(min(backoff, remaining))

		if backoff < 25*time.Millisecond {
			backoff *= 2
			if backoff > 25*time.Millisecond {
				backoff = 25 * time.Millisecond
			}
		}
	}
}

// Close releases the lock and closes the descriptor. Idempotent.
//
// On Unix, closing the descriptor releases the flock anyway; the explicit
// unlock makes the release visible before the close completes.
func (l *buildLock) Close() error {
	if l.file == nil {
		return nil
	}

	unlockErr := flockRetryEINTR(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlocking build lock: %w", unlockErr)
	}

	if closeErr != nil {
		closeErr = fmt.Errorf("closing build lock fd: %w", closeErr)
	}

	return errors.Join(unlockErr, closeErr)
}

// flockRetryEINTR wraps flock, retrying when a signal interrupts the syscall.
// Retries are capped so a pathological signal storm cannot spin forever.
func flockRetryEINTR(fd int, how int) error {
	const maxEINTRRetries = 10000

	var err error
	for range maxEINTRRetries {
		err = unix.Flock(fd, how)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}

	return err
}
